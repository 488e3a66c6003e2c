package rank

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/candidate"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
)

// VectorRanker scores nearest-neighbor candidates with the diversity decay.
type VectorRanker struct {
	repo   vectorSearcher
	params Params
	logger *zap.Logger
}

// NewVectorRanker creates a vector ranker.
func NewVectorRanker(repo vectorSearcher, params Params, logger *zap.Logger) *VectorRanker {
	return &VectorRanker{repo: repo, params: params, logger: logger}
}

// Rank returns up to k candidates above the MinScore floor, ordered by the
// diversity-decayed final score. The floor applies to the base score before
// the penalty, so a recently-used passage is demoted, never excluded.
// A store failure surfaces as ErrBackendUnavailable, distinct from an empty
// result set.
func (v *VectorRanker) Rank(
	ctx context.Context, queryVec []float32, filters filterset.Set, k int, now time.Time,
) ([]candidate.Ranked, error) {
	cands, err := v.repo.SearchVector(ctx, queryVec, filters, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %v: %w", err, domain.ErrBackendUnavailable)
	}

	ranked := make([]candidate.Ranked, 0, len(cands))
	for _, c := range cands {
		if c.BaseScore() < v.params.MinScore {
			continue
		}
		mult := v.params.multiplier(c.Meta().UsedRecently(now, v.params.Lookback))
		ranked = append(ranked, candidate.NewRanked(c, c.BaseScore()*mult, ""))
	}

	SortRanked(ranked)

	v.logger.Debug("Vector ranking done",
		zap.Int("fetched", len(cands)),
		zap.Int("kept", len(ranked)),
	)

	return ranked, nil
}

// SortRanked orders by final score descending, ties broken by id ascending
// for determinism.
func SortRanked(list []candidate.Ranked) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].FinalScore() != list[j].FinalScore() {
			return list[i].FinalScore() > list[j].FinalScore()
		}
		return list[i].ID() < list[j].ID()
	})
}
