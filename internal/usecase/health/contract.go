package health

import "context"

// DBPinger checks store connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks place-search provider reachability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
