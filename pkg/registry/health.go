package registry

import (
	"context"
	"time"
)

// Health reports whether discovery has run and, when a database backs the
// catalog, whether it answers.
func (r *Registry) Health(ctx context.Context) *HealthOutput {
	r.mu.Lock()
	discovered := r.discovered
	r.mu.Unlock()

	checks := HealthChecks{
		Discovered: discovered,
		Operations: r.Len(),
	}
	healthy := discovered

	if r.database != nil {
		dbOk := r.database.Ping(ctx) == nil
		checks.Database = &dbOk
		healthy = healthy && dbOk
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return &HealthOutput{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
