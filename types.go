package passage

import (
	"context"
	"errors"
	"fmt"

	"github.com/seluna-ai/passage/internal/domain"
)

// Query is a retrieval request.
type Query struct {
	// Text is the query text. Required.
	Text string
	// Limit caps the number of returned passages, 1..50. Zero defaults
	// to 5.
	Limit int
	// Strategy is the strategy hint: "vector_only", "fused_hybrid" or
	// "graph_bridged". Empty defaults to fused_hybrid.
	Strategy string

	// Optional metadata filters.
	Domain     string
	SourceType string
	Topics     []string
	ExcludeIDs []string
}

// Passage is one ranked retrieval result.
type Passage struct {
	ID            string
	DocumentID    string
	DocumentTitle string
	Text          string
	Score         float64
	Source        string
	Justification string
}

// Result is a completed retrieval.
type Result struct {
	Passages     []Passage
	StrategyUsed string
	OperationID  string
}

// BudgetSummary is a point-in-time snapshot of the monthly spend ledger.
type BudgetSummary struct {
	Month        string
	SpentUSD     float64
	BudgetUSD    float64
	PercentUsed  float64
	ProjectedUSD float64
	Operations   int64
	Status       string
	Tier         string
}

// EmbeddingResult is the output of a custom embedder.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder lets callers plug in their own embedding provider instead of
// the built-in OpenAI-compatible client.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// embedderAdapter wraps a public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder fails on use; set when neither an API key nor a custom
// embedder is configured.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"passage: embedder not configured (use WithOpenAI, WithLocalProvider or WithEmbedder)",
	)
}
