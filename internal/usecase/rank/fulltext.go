package rank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/candidate"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
)

// FullTextRanker returns lexically ranked candidates. No diversity penalty
// here: diversity is reconciled once during fusion to avoid double-penalizing.
type FullTextRanker struct {
	repo   textSearcher
	logger *zap.Logger
}

// NewFullTextRanker creates a full-text ranker.
func NewFullTextRanker(repo textSearcher, logger *zap.Logger) *FullTextRanker {
	return &FullTextRanker{repo: repo, logger: logger}
}

// Rank returns up to k candidates ordered by lexical relevance. BM25 scores
// are unbounded and not comparable with vector scores until fused.
func (f *FullTextRanker) Rank(
	ctx context.Context, query string, filters filterset.Set, k int,
) ([]candidate.Ranked, error) {
	cands, err := f.repo.SearchText(ctx, query, filters, k)
	if err != nil {
		return nil, fmt.Errorf("fulltext search: %v: %w", err, domain.ErrBackendUnavailable)
	}

	ranked := make([]candidate.Ranked, 0, len(cands))
	for _, c := range cands {
		ranked = append(ranked, candidate.NewRanked(c, c.BaseScore(), ""))
	}

	SortRanked(ranked)

	f.logger.Debug("Full-text ranking done", zap.Int("results", len(ranked)))

	return ranked, nil
}
