package health

import "context"

// DBPinger checks listing store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks a collaborator's availability.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f CheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
