// Package ledger tracks cumulative model spend per calendar month and
// derives the active model tier from it. The hot path (Record, Tier) works
// off in-memory counters guarded by a mutex; persistence is write-behind
// so a slow store never blocks a model call.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seluna-ai/passage/internal/domain/budget"
	"github.com/seluna-ai/passage/internal/metrics"
)

// persistTimeout bounds the write-behind store call. Persistence runs on a
// detached context so spend is recorded even when the caller has already
// been cancelled.
const persistTimeout = 2 * time.Second

// store is the consumer interface for ledger persistence (ISP).
type store interface {
	Add(ctx context.Context, month string, spendMicro, tokensIn, tokensOut int64) error
	Month(ctx context.Context, month string) (budget.MonthTotals, error)
}

// Ledger is the single writer for monthly budget state. All spend
// mutations funnel through Record, serialized by the mutex.
type Ledger struct {
	mu sync.Mutex

	store     store
	budgetUSD float64
	disabled  bool
	logger    *zap.Logger

	month  string
	totals budget.MonthTotals
	warned bool
}

// New creates a ledger. A non-positive budget, or the disabled flag (set
// for no-cost local providers), turns budget control off: calls are still
// counted but the tier never downgrades.
func New(s store, budgetUSD float64, disabled bool, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:     s,
		budgetUSD: budgetUSD,
		disabled:  disabled || budgetUSD <= 0,
		logger:    logger,
	}
}

// Load restores the current month's counters from the store. Call once at
// startup so a restart does not forget spend already made this month.
func (l *Ledger) Load(ctx context.Context, now time.Time) error {
	month := budget.MonthKey(now)

	totals, err := l.store.Month(ctx, month)
	if err != nil {
		return fmt.Errorf("load ledger month %s: %w", month, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.month = month
	l.totals = totals
	l.warned = l.budgetUSD > 0 && totals.SpendUSD()/l.budgetUSD >= budget.WarningThreshold
	l.updateGauge()

	l.logger.Info("budget ledger loaded",
		zap.String("month", month),
		zap.Float64("spent_usd", totals.SpendUSD()),
		zap.Int64("operations", totals.Operations))

	return nil
}

// Record accumulates one completed model call into the month keyed by the
// record's timestamp. The in-memory counters update first; the store write
// runs on a detached context so cancellation of the triggering request
// never loses spend. A store failure is logged, not returned: the call
// already happened and its cost is already counted in memory.
func (l *Ledger) Record(rec budget.CallRecord) {
	month := budget.MonthKey(rec.Timestamp)

	l.mu.Lock()
	l.rollover(month)

	l.totals.SpendMicroUSD += budget.MicroUSD(rec.CostUSD)
	l.totals.Operations++
	l.totals.TokensIn += int64(rec.TokensIn)
	l.totals.TokensOut += int64(rec.TokensOut)
	l.updateGauge()
	l.maybeWarn(rec)
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := l.store.Add(ctx, month, budget.MicroUSD(rec.CostUSD),
		int64(rec.TokensIn), int64(rec.TokensOut)); err != nil {
		l.logger.Error("ledger persistence failed",
			zap.String("month", month),
			zap.String("operation_id", rec.OperationID),
			zap.Error(err))
	}
}

// Status returns the budget health band for the current in-memory state.
func (l *Ledger) Status() budget.Status {
	if l.disabled {
		return budget.StatusDisabled
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return budget.StatusFor(l.totals.SpendUSD(), l.budgetUSD)
}

// Tier returns the model tier the current spend allows.
func (l *Ledger) Tier() budget.Tier {
	return budget.TierFor(l.Status())
}

// Summary returns a point-in-time snapshot for the budget endpoint,
// including a straight-line projection of month-end spend.
func (l *Ledger) Summary(now time.Time) budget.Summary {
	month := budget.MonthKey(now)

	l.mu.Lock()
	l.rollover(month)
	totals := l.totals
	l.mu.Unlock()

	status := budget.StatusFor(totals.SpendUSD(), l.budgetUSD)
	if l.disabled {
		status = budget.StatusDisabled
	}

	return budget.NewSummary(
		month,
		totals.SpendUSD(),
		l.budgetUSD,
		totals.Operations,
		status,
		budget.TierFor(status),
		projectMonthEnd(totals.SpendUSD(), now),
	)
}

// rollover resets the counters when the month key changes. Callers must
// hold the mutex.
func (l *Ledger) rollover(month string) {
	if month == l.month {
		return
	}
	if l.month != "" {
		l.logger.Info("budget month rollover",
			zap.String("from", l.month),
			zap.String("to", month),
			zap.Float64("closed_spend_usd", l.totals.SpendUSD()))
	}
	l.month = month
	l.totals = budget.MonthTotals{}
	l.warned = false
	l.updateGauge()
}

// maybeWarn logs once per month when spend first crosses the warning
// threshold. Callers must hold the mutex.
func (l *Ledger) maybeWarn(rec budget.CallRecord) {
	if l.disabled || l.warned {
		return
	}
	spent := l.totals.SpendUSD()
	if spent/l.budgetUSD < budget.WarningThreshold {
		return
	}
	l.warned = true
	l.logger.Warn("monthly budget warning threshold crossed",
		zap.String("month", l.month),
		zap.Float64("spent_usd", spent),
		zap.Float64("budget_usd", l.budgetUSD),
		zap.String("model", rec.Model))
}

// updateGauge publishes the remaining budget. Callers must hold the mutex.
func (l *Ledger) updateGauge() {
	if l.disabled || l.month == "" {
		return
	}
	metrics.BudgetRemainingUSD.WithLabelValues(l.month).
		Set(l.budgetUSD - l.totals.SpendUSD())
}

// projectMonthEnd extrapolates current spend to the end of the month at
// the observed daily rate.
func projectMonthEnd(spentUSD float64, now time.Time) float64 {
	now = now.UTC()
	day := now.Day()
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return spentUSD / float64(day) * float64(daysInMonth)
}
