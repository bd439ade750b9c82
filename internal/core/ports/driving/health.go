package driving

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// HealthService reports whether the answer backends are reachable.
type HealthService interface {
	// Check probes every backend and aggregates the result.
	Check(ctx context.Context) domain.HealthReport
}
