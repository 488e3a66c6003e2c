package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Retrieval may still serve via
	// fallback strategies.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store StorePinger
	model ModelChecker
	graph GraphChecker
}

// New creates a Service. model and graph can be nil when not configured.
func New(store StorePinger, model ModelChecker, graph GraphChecker) *Service {
	return &Service{store: store, model: model, graph: graph}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["store"] = s.resultOf(s.store.Ping(ctx))

	if s.model != nil {
		checks["model"] = s.resultOf(s.model.HealthCheck(ctx))
	}
	if s.graph != nil {
		checks["graph"] = s.resultOf(s.graph.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
