// Package passage persists retrievable passages as flat hashes and queries
// them through the store's FT index (KNN, BM25, listing by document).
package passage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seluna-ai/passage/internal/db"
	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/candidate"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
)

// store is the consumer interface for passage operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HIncrBy(ctx context.Context, key, field string, incr int64) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements the retrieval-side passage queries and the mark-used
// write path.
type Repo struct {
	store store
}

// New creates a passage repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// EnsureIndex creates the passage FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, vectorDim int) error {
	name := indexName()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def, err := indexDefinition(vectorDim)
	if err != nil {
		return err
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// SearchVector performs a KNN search pre-filtered by the filter set and
// returns candidates scored by cosine similarity.
func (r *Repo) SearchVector(
	ctx context.Context, vector []float32, filters filterset.Set, topK int,
) ([]candidate.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    indexName(),
		Filters:      buildClauses(filters),
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	return parseEntries(sr, candidate.SourceVector)
}

// SearchText performs a BM25 keyword search pre-filtered by the filter set.
func (r *Repo) SearchText(
	ctx context.Context, query string, filters filterset.Set, topK int,
) ([]candidate.Candidate, error) {
	q := &db.TextQuery{
		IndexName:    indexName(),
		Field:        fieldContent,
		Query:        query,
		Filters:      buildClauses(filters),
		TopK:         topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}

	return parseEntries(sr, candidate.SourceFullText)
}

// FindByDocumentID returns the passages of a document ordered by chunk index.
func (r *Repo) FindByDocumentID(ctx context.Context, documentID string, limit int) (
	[]candidate.Candidate, error,
) {
	q := &db.ListQuery{
		IndexName:    indexName(),
		Query:        fmt.Sprintf("@%s:{%s}", fieldDocumentID, tagEscape(documentID)),
		Limit:        limit,
		ReturnFields: returnFields,
		SortBy:       fieldChunkIndex,
		SortAsc:      true,
	}

	sr, err := r.store.SearchList(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list by document %s: %w", documentID, err)
	}

	return parseEntries(sr, candidate.SourceGraph)
}

// FindByTitle returns passages whose document title matches the given words
// as prefixes, ordered by chunk index. Used by the graph bridge when the
// episode name is not an exact document id.
func (r *Repo) FindByTitle(ctx context.Context, title string, limit int) (
	[]candidate.Candidate, error,
) {
	words := strings.Fields(title)
	if len(words) == 0 {
		return nil, nil
	}

	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, textEscape(w)+"*")
	}

	q := &db.ListQuery{
		IndexName:    indexName(),
		Query:        fmt.Sprintf("@%s:(%s)", fieldDocumentTitle, strings.Join(terms, " ")),
		Limit:        limit,
		ReturnFields: returnFields,
		SortBy:       fieldChunkIndex,
		SortAsc:      true,
	}

	sr, err := r.store.SearchList(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list by title %q: %w", title, err)
	}

	return parseEntries(sr, candidate.SourceGraph)
}

// MarkUsed stamps last_used_at and increments use_count on a passage hash.
func (r *Repo) MarkUsed(ctx context.Context, id string, now time.Time) error {
	key := passageKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	stamp := map[string]string{
		fieldLastUsedAt: strconv.FormatInt(now.Unix(), 10),
	}
	if err := r.store.HSet(ctx, key, stamp); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	// HINCRBY keeps concurrent markings from losing counts.
	if err := r.store.HIncrBy(ctx, key, fieldUseCount, 1); err != nil {
		return fmt.Errorf("hincrby %s: %w", key, err)
	}
	return nil
}

// buildClauses translates a filter set into store tag clauses. Deleted
// passages are always excluded.
func buildClauses(filters filterset.Set) []db.TagClause {
	clauses := []db.TagClause{
		{Field: fieldDeleted, Values: []string{"1"}, Negate: true},
	}

	if d := filters.Domain(); d != "" {
		clauses = append(clauses, db.TagClause{Field: fieldDomain, Values: []string{d}})
	}
	if st := filters.SourceType(); st != "" {
		clauses = append(clauses, db.TagClause{Field: fieldSourceType, Values: []string{st}})
	}
	if topics := filters.Topics(); len(topics) > 0 {
		clauses = append(clauses, db.TagClause{Field: fieldTopics, Values: topics})
	}
	if ids := filters.ExcludeIDs(); len(ids) > 0 {
		clauses = append(clauses, db.TagClause{Field: fieldID, Values: ids, Negate: true})
	}

	return clauses
}
