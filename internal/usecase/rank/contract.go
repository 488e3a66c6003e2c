package rank

import (
	"context"

	"github.com/seluna-ai/passage/internal/domain/candidate"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
)

// vectorSearcher is the consumer interface for the vector index (ISP).
type vectorSearcher interface {
	SearchVector(ctx context.Context, vector []float32, filters filterset.Set, topK int) ([]candidate.Candidate, error)
}

// textSearcher is the consumer interface for the full-text index (ISP).
type textSearcher interface {
	SearchText(ctx context.Context, query string, filters filterset.Set, topK int) ([]candidate.Candidate, error)
}
