package server

import (
	"context"
	"fmt"
)

// healthChecker is the subset of the embedding and generation clients used by
// ServicePinger: a zero-cost GET against the service's /health endpoint.
type healthChecker interface {
	Health(ctx context.Context) error
}

// ServicePinger probes an HTTP model service through its /health endpoint.
// It satisfies the Pinger interface and is used by GET /api/ready and by the
// CLI pre-flight checks.
type ServicePinger struct {
	// checker performs the actual health request.
	checker healthChecker
	// name identifies the service in readiness responses (e.g. "embedding").
	name string
}

// NewServicePinger constructs a ServicePinger for the given client and name.
func NewServicePinger(checker healthChecker, name string) *ServicePinger {
	return &ServicePinger{checker: checker, name: name}
}

// Name returns the service label used in readiness responses.
func (p *ServicePinger) Name() string { return p.name }

// Ping probes the service's /health endpoint.
func (p *ServicePinger) Ping(ctx context.Context) error {
	if err := p.checker.Health(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", p.name, err)
	}
	return nil
}

// dbPinger is the subset of the vector store used by StorePinger.
type dbPinger interface {
	Ping(ctx context.Context) error
}

// StorePinger probes the vector database connection pool.
// It satisfies the Pinger interface and is used by GET /api/ready.
type StorePinger struct {
	// store is the connection pool to probe.
	store dbPinger
}

// NewStorePinger constructs a StorePinger for the given store.
func NewStorePinger(store dbPinger) *StorePinger {
	return &StorePinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "database" }

// Ping checks the database connection.
// Returns nil if the database is reachable, or a descriptive error otherwise.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
