package budget

// Summary is a point-in-time budget snapshot for dashboards and the
// /budget endpoint.
type Summary struct {
	month        string
	spentUSD     float64
	budgetUSD    float64
	operations   int64
	status       Status
	tier         Tier
	projectedUSD float64
}

// NewSummary creates a budget summary snapshot.
func NewSummary(
	month string, spentUSD, budgetUSD float64,
	operations int64, status Status, tier Tier, projectedUSD float64,
) Summary {
	return Summary{
		month:        month,
		spentUSD:     spentUSD,
		budgetUSD:    budgetUSD,
		operations:   operations,
		status:       status,
		tier:         tier,
		projectedUSD: projectedUSD,
	}
}

// Month returns the calendar-month key (YYYY-MM).
func (s *Summary) Month() string { return s.month }

// SpentUSD returns the cumulative spend for the month.
func (s *Summary) SpentUSD() float64 { return s.spentUSD }

// BudgetUSD returns the configured monthly budget (0 = disabled).
func (s *Summary) BudgetUSD() float64 { return s.budgetUSD }

// Operations returns the number of recorded model calls this month.
func (s *Summary) Operations() int64 { return s.operations }

// Status returns the budget health band.
func (s *Summary) Status() Status { return s.status }

// Tier returns the active model tier.
func (s *Summary) Tier() Tier { return s.tier }

// ProjectedUSD returns the projected month-end spend at the current daily rate.
func (s *Summary) ProjectedUSD() float64 { return s.projectedUSD }

// PercentUsed returns spend as a percentage of budget (0 when disabled).
func (s *Summary) PercentUsed() float64 {
	if s.budgetUSD <= 0 {
		return 0
	}
	return s.spentUSD / s.budgetUSD * 100
}
