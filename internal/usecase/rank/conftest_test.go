package rank

import (
	"context"
	"time"

	"github.com/seluna-ai/passage/internal/domain/candidate"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// mockVectorRepo implements vectorSearcher for tests.
type mockVectorRepo struct {
	cands []candidate.Candidate
	err   error
}

func (m *mockVectorRepo) SearchVector(
	_ context.Context, _ []float32, _ filterset.Set, _ int,
) ([]candidate.Candidate, error) {
	return m.cands, m.err
}

// mockTextRepo implements textSearcher for tests.
type mockTextRepo struct {
	cands []candidate.Candidate
	err   error
}

func (m *mockTextRepo) SearchText(
	_ context.Context, _ string, _ filterset.Set, _ int,
) ([]candidate.Candidate, error) {
	return m.cands, m.err
}

func vectorCand(id string, score float64, lastUsed time.Time) candidate.Candidate {
	return candidate.New(id, "doc-"+id, "", "text "+id,
		candidate.Metadata{LastUsedAt: lastUsed}, score, candidate.SourceVector)
}

func textCand(id string, score float64) candidate.Candidate {
	return candidate.New(id, "doc-"+id, "", "text "+id,
		candidate.Metadata{}, score, candidate.SourceFullText)
}

func rankedList(cands ...candidate.Candidate) []candidate.Ranked {
	out := make([]candidate.Ranked, 0, len(cands))
	for _, c := range cands {
		out = append(out, candidate.NewRanked(c, c.BaseScore(), ""))
	}
	return out
}
