package health

import "context"

// StorePinger checks passage store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker checks model provider availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}

// GraphChecker checks the graph-search collaborator.
type GraphChecker interface {
	HealthCheck(ctx context.Context) error
}
