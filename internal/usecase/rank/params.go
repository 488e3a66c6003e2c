// Package rank implements passage scoring: vector and full-text ranking,
// reciprocal rank fusion, and the recency diversity penalty.
package rank

import "time"

// Scoring defaults.
const (
	DefaultMinScore         = 0.4
	DefaultDiversityPenalty = 0.30
	DefaultLookback         = 30 * 24 * time.Hour
)

// Params are the shared scoring knobs.
type Params struct {
	// MinScore is the base-score floor for vector candidates, checked
	// before any penalty.
	MinScore float64
	// DiversityPenalty is the multiplicative reduction applied to
	// recently-used passages, as (1 - DiversityPenalty).
	DiversityPenalty float64
	// Lookback is the recency window for the penalty.
	Lookback time.Duration
}

// DefaultParams returns the default scoring knobs.
func DefaultParams() Params {
	return Params{
		MinScore:         DefaultMinScore,
		DiversityPenalty: DefaultDiversityPenalty,
		Lookback:         DefaultLookback,
	}
}

// multiplier returns the diversity multiplier for a passage last used at the
// given time. The penalty only ever deflates a score.
func (p Params) multiplier(usedRecently bool) float64 {
	if usedRecently {
		return 1 - p.DiversityPenalty
	}
	return 1
}
