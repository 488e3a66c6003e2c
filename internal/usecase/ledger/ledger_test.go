package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain/budget"
	"github.com/seluna-ai/passage/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterModelMetrics()
	m.Run()
}

// mockStore records Add calls per month and serves preloaded totals.
type mockStore struct {
	mu       sync.Mutex
	months   map[string]budget.MonthTotals
	addErr   error
	monthErr error
}

func newMockStore() *mockStore {
	return &mockStore{months: map[string]budget.MonthTotals{}}
}

func (m *mockStore) Add(_ context.Context, month string, spendMicro, tokensIn, tokensOut int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	t := m.months[month]
	t.SpendMicroUSD += spendMicro
	t.Operations++
	t.TokensIn += tokensIn
	t.TokensOut += tokensOut
	m.months[month] = t
	return nil
}

func (m *mockStore) Month(_ context.Context, month string) (budget.MonthTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.monthErr != nil {
		return budget.MonthTotals{}, m.monthErr
	}
	return m.months[month], nil
}

func rec(costUSD float64, ts time.Time) budget.CallRecord {
	return budget.CallRecord{
		OperationID: "op-1",
		Model:       "gpt-5-mini",
		TokensIn:    100,
		TokensOut:   40,
		CostUSD:     costUSD,
		Timestamp:   ts,
	}
}

func TestRecord_AccumulatesSpend(t *testing.T) {
	store := newMockStore()
	l := New(store, 10.0, false, zap.NewNop())
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	l.Record(rec(0.25, now))
	l.Record(rec(0.50, now.Add(time.Hour)))

	sum := l.Summary(now)
	if math.Abs(sum.SpentUSD()-0.75) > 1e-9 {
		t.Errorf("expected 0.75 spent, got %f", sum.SpentUSD())
	}
	if sum.Operations() != 2 {
		t.Errorf("expected 2 operations, got %d", sum.Operations())
	}

	persisted := store.months["2025-06"]
	if persisted.SpendMicroUSD != 750000 {
		t.Errorf("expected 750000 micro-USD persisted, got %d", persisted.SpendMicroUSD)
	}
	if persisted.TokensIn != 200 || persisted.TokensOut != 80 {
		t.Errorf("unexpected persisted tokens: %+v", persisted)
	}
}

func TestRecord_MonthRollover(t *testing.T) {
	store := newMockStore()
	l := New(store, 10.0, false, zap.NewNop())

	june := time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC)
	july := time.Date(2025, 7, 1, 1, 0, 0, 0, time.UTC)

	l.Record(rec(9.50, june))
	if got := l.Tier(); got != budget.TierFallback {
		t.Fatalf("expected fallback tier at 95%% spend, got %s", got)
	}

	l.Record(rec(0.10, july))

	sum := l.Summary(july)
	if math.Abs(sum.SpentUSD()-0.10) > 1e-9 {
		t.Errorf("expected fresh month to hold 0.10, got %f", sum.SpentUSD())
	}
	if got := l.Tier(); got != budget.TierNormal {
		t.Errorf("expected normal tier after rollover, got %s", got)
	}

	if store.months["2025-06"].SpendMicroUSD != 9500000 {
		t.Errorf("june counters disturbed: %+v", store.months["2025-06"])
	}
	if store.months["2025-07"].SpendMicroUSD != 100000 {
		t.Errorf("july counters wrong: %+v", store.months["2025-07"])
	}
}

func TestTier_Transitions(t *testing.T) {
	store := newMockStore()
	l := New(store, 10.0, false, zap.NewNop())
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	steps := []struct {
		add    float64
		status budget.Status
		tier   budget.Tier
	}{
		{add: 5.00, status: budget.StatusOK, tier: budget.TierNormal},
		{add: 2.00, status: budget.StatusWarning, tier: budget.TierNormal},
		{add: 2.00, status: budget.StatusCritical, tier: budget.TierFallback},
	}

	for _, step := range steps {
		l.Record(rec(step.add, now))
		if got := l.Status(); got != step.status {
			t.Errorf("after +%.2f: expected status %s, got %s", step.add, step.status, got)
		}
		if got := l.Tier(); got != step.tier {
			t.Errorf("after +%.2f: expected tier %s, got %s", step.add, step.tier, got)
		}
	}
}

func TestDisabledBudget(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name      string
		budgetUSD float64
		local     bool
	}{
		{name: "zero budget", budgetUSD: 0},
		{name: "local provider", budgetUSD: 10.0, local: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := newMockStore()
			l := New(store, tc.budgetUSD, tc.local, zap.NewNop())

			l.Record(rec(1000.0, now))

			if got := l.Status(); got != budget.StatusDisabled {
				t.Errorf("expected disabled status, got %s", got)
			}
			if got := l.Tier(); got != budget.TierNormal {
				t.Errorf("expected normal tier, got %s", got)
			}
			// Calls are still counted even with control off.
			if sum := l.Summary(now); sum.Operations() != 1 {
				t.Errorf("expected 1 operation counted, got %d", sum.Operations())
			}
		})
	}
}

func TestLoad_RestoresSpend(t *testing.T) {
	store := newMockStore()
	store.months["2025-06"] = budget.MonthTotals{
		SpendMicroUSD: 7_500_000,
		Operations:    42,
		TokensIn:      10_000,
		TokensOut:     4_000,
	}

	l := New(store, 10.0, false, zap.NewNop())
	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	if err := l.Load(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := l.Status(); got != budget.StatusWarning {
		t.Errorf("expected warning status after restore, got %s", got)
	}
	if sum := l.Summary(now); sum.Operations() != 42 {
		t.Errorf("expected 42 restored operations, got %d", sum.Operations())
	}
}

func TestLoad_StoreError(t *testing.T) {
	store := newMockStore()
	store.monthErr = errors.New("connection refused")

	l := New(store, 10.0, false, zap.NewNop())
	if err := l.Load(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRecord_StoreFailureKeepsMemoryState(t *testing.T) {
	store := newMockStore()
	store.addErr = errors.New("connection refused")

	l := New(store, 10.0, false, zap.NewNop())
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	l.Record(rec(9.50, now))

	// The call already happened; spend counts even if persistence failed.
	if got := l.Tier(); got != budget.TierFallback {
		t.Errorf("expected fallback tier from in-memory spend, got %s", got)
	}
}

func TestSummary_Projection(t *testing.T) {
	store := newMockStore()
	l := New(store, 100.0, false, zap.NewNop())

	// Day 15 of a 30-day month at $10 spent projects to $20.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	l.Record(rec(10.0, now))

	sum := l.Summary(now)
	if math.Abs(sum.ProjectedUSD()-20.0) > 1e-9 {
		t.Errorf("expected 20.0 projected, got %f", sum.ProjectedUSD())
	}
	if math.Abs(sum.PercentUsed()-10.0) > 1e-9 {
		t.Errorf("expected 10%% used, got %f", sum.PercentUsed())
	}
}

func TestOperation_SharesID(t *testing.T) {
	op := NewOperation()
	if op.ID() == "" {
		t.Fatal("expected a generated operation id")
	}

	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	first := op.Observe("text-embedding-3-small", 120, 0, 0.0001, now)
	second := op.Observe("gpt-5-mini", 800, 200, 0.002, now.Add(time.Second))

	if first.OperationID != op.ID() || second.OperationID != op.ID() {
		t.Error("records must carry the shared operation id")
	}

	calls, tokensIn, tokensOut, costUSD := op.Totals()
	if calls != 2 || tokensIn != 920 || tokensOut != 200 {
		t.Errorf("unexpected totals: calls=%d in=%d out=%d", calls, tokensIn, tokensOut)
	}
	if math.Abs(costUSD-0.0021) > 1e-9 {
		t.Errorf("expected 0.0021 cost, got %f", costUSD)
	}
}
