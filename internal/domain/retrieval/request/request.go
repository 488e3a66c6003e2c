// Package request defines the validated retrieval request value object.
package request

import (
	"fmt"

	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
	"github.com/seluna-ai/passage/internal/domain/retrieval/strategy"
)

// Limit bounds.
const (
	DefaultLimit = 5
	MaxLimit     = 50
)

// Request is a validated retrieval request.
type Request struct {
	query   string
	limit   int
	hint    strategy.Strategy
	filters filterset.Set
}

// New validates and creates a request. A zero limit defaults to DefaultLimit.
func New(query string, limit int, hint strategy.Strategy, filters filterset.Set) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return Request{}, fmt.Errorf("limit must be between 1 and %d, got %d", MaxLimit, limit)
	}
	return Request{query: query, limit: limit, hint: hint, filters: filters}, nil
}

// Query returns the natural-language query text.
func (r *Request) Query() string { return r.query }

// Limit returns the maximum number of results to return.
func (r *Request) Limit() int { return r.limit }

// Hint returns the requested strategy.
func (r *Request) Hint() strategy.Strategy { return r.hint }

// Filters returns the metadata pre-filters.
func (r *Request) Filters() filterset.Set { return r.filters }
