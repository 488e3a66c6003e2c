package passage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seluna-ai/passage/internal/db"
	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/candidate"
	"github.com/seluna-ai/passage/internal/domain/retrieval/filterset"
)

// --- SearchVector ---

func TestSearchVector_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "passage:chunk:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 10 {
			t.Errorf("unexpected K: %d", q.K)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:   "passage:chunk:psg-1",
					Score: 0.877,
					Fields: map[string]string{
						"__content":      "hiring process overview",
						"id":             "psg-1",
						"document_id":    "doc-1",
						"document_title": "Hiring SOP",
						"domain":         "hr",
						"topics":         "hiring,onboarding",
						"chunk_index":    "0",
						"use_count":      "3",
						"last_used_at":   "1735689600",
					},
				},
				{
					Key:   "passage:chunk:psg-2",
					Score: 0.544,
					Fields: map[string]string{
						"__content": "unrelated passage",
						"id":        "psg-2",
					},
				},
			},
		}, nil
	}

	cands, err := repo.SearchVector(ctx, testVector(), filterset.Set{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}

	c := cands[0]
	if c.ID() != "psg-1" {
		t.Errorf("expected id psg-1, got %s", c.ID())
	}
	if c.BaseScore() != 0.877 {
		t.Errorf("expected score 0.877, got %f", c.BaseScore())
	}
	if c.Source() != candidate.SourceVector {
		t.Errorf("expected vector source, got %s", c.Source())
	}
	if c.DocumentTitle() != "Hiring SOP" {
		t.Errorf("unexpected title: %s", c.DocumentTitle())
	}
	meta := c.Meta()
	if meta.Domain != "hr" {
		t.Errorf("expected domain hr, got %s", meta.Domain)
	}
	if len(meta.Topics) != 2 || meta.Topics[0] != "hiring" {
		t.Errorf("unexpected topics: %v", meta.Topics)
	}
	if meta.UseCount != 3 {
		t.Errorf("expected use_count 3, got %d", meta.UseCount)
	}
	if meta.LastUsedAt.IsZero() {
		t.Error("expected last_used_at to be set")
	}
}

func TestSearchVector_FilterClauses(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var got []db.TagClause
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q.Filters
		return &db.SearchResult{}, nil
	}

	fs := mustFilters(t, "hr", "sop", []string{"hiring"}, []string{"psg-9"})
	if _, err := repo.SearchVector(ctx, testVector(), fs, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// deleted exclusion + domain + source_type + topics + exclude ids
	if len(got) != 5 {
		t.Fatalf("expected 5 clauses, got %d", len(got))
	}
	if got[0].Field != "deleted" || !got[0].Negate {
		t.Errorf("expected negated deleted clause first, got %+v", got[0])
	}
	last := got[len(got)-1]
	if last.Field != "id" || !last.Negate || last.Values[0] != "psg-9" {
		t.Errorf("expected negated id clause, got %+v", last)
	}
}

func TestSearchVector_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("connection refused")
	}

	if _, err := repo.SearchVector(ctx, testVector(), filterset.Set{}, 5); err == nil {
		t.Fatal("expected error")
	}
}

// --- SearchText ---

func TestSearchText_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchBM25Fn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.Query != "hiring checklist" {
			t.Errorf("unexpected query: %s", q.Query)
		}
		if q.Field != "__content" {
			t.Errorf("unexpected field: %s", q.Field)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				{
					Key:   "passage:chunk:psg-1",
					Score: 4.2,
					Fields: map[string]string{
						"__content": "hiring checklist",
						"id":        "psg-1",
					},
				},
			},
		}, nil
	}

	cands, err := repo.SearchText(ctx, "hiring checklist", filterset.Set{}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Source() != candidate.SourceFullText {
		t.Errorf("expected fulltext source, got %s", cands[0].Source())
	}
	if cands[0].BaseScore() != 4.2 {
		t.Errorf("expected raw BM25 score 4.2, got %f", cands[0].BaseScore())
	}
}

// --- FindByDocumentID / FindByTitle ---

func TestFindByDocumentID_SortsByChunkIndex(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if q.Query != "@document_id:{doc\\-1}" {
			t.Errorf("unexpected query: %s", q.Query)
		}
		if q.SortBy != "chunk_index" || !q.SortAsc {
			t.Errorf("expected SORTBY chunk_index ASC, got %s asc=%v", q.SortBy, q.SortAsc)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "passage:chunk:psg-1", Fields: map[string]string{"id": "psg-1", "chunk_index": "0"}},
				{Key: "passage:chunk:psg-2", Fields: map[string]string{"id": "psg-2", "chunk_index": "1"}},
			},
		}, nil
	}

	cands, err := repo.FindByDocumentID(ctx, "doc-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].Source() != candidate.SourceGraph {
		t.Errorf("expected graph source, got %s", cands[0].Source())
	}
}

func TestFindByTitle_PrefixQuery(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if q.Query != "@document_title:(hiring* sop*)" {
			t.Errorf("unexpected query: %s", q.Query)
		}
		return &db.SearchResult{}, nil
	}

	if _, err := repo.FindByTitle(ctx, "hiring sop", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindByTitle_EmptyTitle(t *testing.T) {
	repo, _ := newTestRepo(t)

	cands, err := repo.FindByTitle(context.Background(), "   ", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cands != nil {
		t.Fatalf("expected nil, got %v", cands)
	}
}

// --- MarkUsed ---

func TestMarkUsed_IncrementsUseCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ms.existsFn = func(_ context.Context, key string) (bool, error) {
		if key != "passage:chunk:psg-1" {
			t.Errorf("unexpected key: %s", key)
		}
		return true, nil
	}

	var written map[string]string
	ms.hSetFn = func(_ context.Context, _ string, fields map[string]string) error {
		written = fields
		return nil
	}

	var incrField string
	var incrBy int64
	ms.hIncrByFn = func(_ context.Context, _ string, field string, incr int64) error {
		incrField = field
		incrBy = incr
		return nil
	}

	if err := repo.MarkUsed(ctx, "psg-1", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if incrField != "use_count" || incrBy != 1 {
		t.Errorf("expected HINCRBY use_count 1, got %s %d", incrField, incrBy)
	}
	if written["last_used_at"] != "1748779200" {
		t.Errorf("unexpected last_used_at: %s", written["last_used_at"])
	}
	if _, ok := written["use_count"]; ok {
		t.Error("use_count must go through the increment, not a plain write")
	}
}

func TestMarkUsed_ConcurrentCallsKeepAllIncrements(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) {
		return true, nil
	}

	var mu sync.Mutex
	counts := map[string]int64{}
	ms.hIncrByFn = func(_ context.Context, _ string, field string, incr int64) error {
		mu.Lock()
		counts[field] += incr
		mu.Unlock()
		return nil
	}

	const callers = 16
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.MarkUsed(context.Background(), "psg-1", time.Now()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if counts["use_count"] != callers {
		t.Errorf("expected %d increments, got %d", callers, counts["use_count"])
	}
}

func TestMarkUsed_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) {
		return false, nil
	}

	err := repo.MarkUsed(context.Background(), "missing", time.Now())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- EnsureIndex ---

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.indexExistsFn = func(_ context.Context, name string) (bool, error) {
		if name != "passage:chunk:idx" {
			t.Errorf("unexpected index name: %s", name)
		}
		return false, nil
	}

	var created *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = def
		return nil
	}

	if err := repo.EnsureIndex(ctx, 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected index creation")
	}
	if created.Name != "passage:chunk:idx" {
		t.Errorf("unexpected index name: %s", created.Name)
	}

	var hasVector bool
	for i := range created.Fields {
		if created.Fields[i].Type == db.IndexFieldVector {
			hasVector = true
			if created.Fields[i].VectorDim != 1536 {
				t.Errorf("expected dim 1536, got %d", created.Fields[i].VectorDim)
			}
		}
	}
	if !hasVector {
		t.Error("expected a vector field in the schema")
	}
}

func TestEnsureIndex_SkipsWhenPresent(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) {
		return true, nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Fatal("create should not be called")
		return nil
	}

	if err := repo.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_TolerateConcurrentCreate(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) {
		return false, nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return db.ErrIndexExists
	}

	if err := repo.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
