package passage

import (
	"context"
	"testing"

	"github.com/seluna-ai/passage/internal/db"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn          func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchBM25Fn         func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchListFn         func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	hSetFn               func(ctx context.Context, key string, fields map[string]string) error
	hIncrByFn            func(ctx context.Context, key, field string, incr int64) error
	existsFn             func(ctx context.Context, key string) (bool, error)
	createIndexFn        func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn        func(ctx context.Context, name string) (bool, error)
	supportsTextSearchFn func(ctx context.Context) bool
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hSetFn != nil {
		return m.hSetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HIncrBy(ctx context.Context, key, field string, incr int64) error {
	if m.hIncrByFn != nil {
		return m.hIncrByFn(ctx, key, field, incr)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SupportsTextSearch(ctx context.Context) bool {
	if m.supportsTextSearchFn != nil {
		return m.supportsTextSearchFn(ctx)
	}
	return true
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testVector() []float32 {
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func mustFilters(t *testing.T, domain, sourceType string, topics, excludeIDs []string) filterset.Set {
	t.Helper()
	fs, err := filterset.New(domain, sourceType, topics, excludeIDs)
	if err != nil {
		t.Fatalf("filterset.New: %v", err)
	}
	return fs
}
