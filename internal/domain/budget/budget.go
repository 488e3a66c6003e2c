// Package budget holds the monthly spend accounting value objects.
package budget

import "time"

// Tier is the model-selection mode derived from cumulative monthly spend.
type Tier string

const (
	// TierNormal selects the configured default model.
	TierNormal Tier = "normal"
	// TierFallback selects the cheaper fallback model once spend reaches
	// the critical threshold.
	TierFallback Tier = "fallback"
)

// Status is the budget health band.
type Status string

const (
	// StatusOK means spend is below the warning threshold.
	StatusOK Status = "ok"
	// StatusWarning means spend reached the warning threshold. Alert only,
	// model selection is unchanged.
	StatusWarning Status = "warning"
	// StatusCritical means spend reached the critical threshold. The
	// fallback model tier is active.
	StatusCritical Status = "critical"
	// StatusDisabled means budget control is off (zero budget or a
	// no-cost local provider).
	StatusDisabled Status = "disabled"
)

// Spend fractions at which the status bands switch.
const (
	WarningThreshold  = 0.70
	CriticalThreshold = 0.90
)

// StatusFor maps spend against budget to a status band.
// A non-positive budget disables budget control entirely.
func StatusFor(spentUSD, budgetUSD float64) Status {
	if budgetUSD <= 0 {
		return StatusDisabled
	}
	switch frac := spentUSD / budgetUSD; {
	case frac >= CriticalThreshold:
		return StatusCritical
	case frac >= WarningThreshold:
		return StatusWarning
	default:
		return StatusOK
	}
}

// TierFor maps a status band to the active model tier. Only the critical
// band downgrades; warning and disabled stay on the normal tier.
func TierFor(s Status) Tier {
	if s == StatusCritical {
		return TierFallback
	}
	return TierNormal
}

// MonthTotals are the accumulated ledger counters for one YYYY-MM month.
type MonthTotals struct {
	SpendMicroUSD int64
	Operations    int64
	TokensIn      int64
	TokensOut     int64
}

// SpendUSD converts the micro-USD counter back to dollars.
func (t MonthTotals) SpendUSD() float64 {
	return float64(t.SpendMicroUSD) / 1e6
}

// MicroUSD converts a dollar amount to the micro-USD integer representation
// used by the ledger counters. Spend is stored as integers so increments
// stay lossless.
func MicroUSD(usd float64) int64 {
	return int64(usd*1e6 + 0.5)
}

// CallRecord is the durable trace of one completed model API call.
// Created by the model client after every call; rolled up into the month
// keyed by its timestamp.
type CallRecord struct {
	OperationID string
	Model       string
	TokensIn    int
	TokensOut   int
	CostUSD     float64
	Timestamp   time.Time
}

// MonthKey formats a timestamp as the calendar-month ledger key (YYYY-MM).
// Month rollover is implicit: a new key starts at zero.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
