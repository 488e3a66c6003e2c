package rank

import (
	"time"

	"github.com/seluna-ai/passage/internal/domain/candidate"
)

// rrfK is the standard RRF damping constant; larger values flatten the
// effect of rank differences.
const rrfK = 60

// FusionEngine merges the vector and full-text rankings via Reciprocal Rank
// Fusion. RRF is scale-free, so a bounded cosine similarity combines with an
// unbounded BM25 score without re-normalization.
type FusionEngine struct {
	params Params
}

// NewFusionEngine creates a fusion engine.
func NewFusionEngine(params Params) *FusionEngine {
	return &FusionEngine{params: params}
}

// Fuse produces at most k results. A candidate at 1-based rank r in a source
// list contributes 1/(rrfK+r); a candidate in both lists is merged by id
// before fusion, so it is never double-counted as two entries. The diversity
// multiplier is applied once, to the fused score.
func (f *FusionEngine) Fuse(
	vector, fulltext []candidate.Ranked, k int, now time.Time,
) []candidate.Ranked {
	type scored struct {
		cand     candidate.Candidate
		score    float64
		inVector bool
	}

	merged := make(map[string]*scored, len(vector)+len(fulltext))
	order := make([]string, 0, len(vector)+len(fulltext))

	for rank, r := range vector {
		s := 1.0 / float64(rrfK+rank+1)
		merged[r.ID()] = &scored{cand: r.Candidate(), score: s, inVector: true}
		order = append(order, r.ID())
	}

	for rank, r := range fulltext {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[r.ID()]; ok {
			existing.score += s
			// the vector-side candidate is kept on merge
			continue
		}
		merged[r.ID()] = &scored{cand: r.Candidate(), score: s}
		order = append(order, r.ID())
	}

	results := make([]candidate.Ranked, 0, len(merged))
	for _, id := range order {
		s := merged[id]
		mult := f.params.multiplier(s.cand.Meta().UsedRecently(now, f.params.Lookback))
		results = append(results, candidate.NewRanked(s.cand, s.score*mult, ""))
	}

	SortRanked(results)

	if len(results) > k {
		results = results[:k]
	}
	return results
}
