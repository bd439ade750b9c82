package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
)

// Ensure HealthService implements the interface.
var _ driving.HealthService = (*HealthService)(nil)

// Component names reported by the health check.
const (
	ComponentStore     = "chunk_store"
	ComponentGenerator = "answer_generator"
	ComponentEmbedder  = "embedding"
)

// DefaultProbeTimeout bounds each backend probe.
const DefaultProbeTimeout = 5 * time.Second

// HealthService probes the answer backends.
type HealthService struct {
	store     driven.ChunkStore
	generator driven.AnswerGenerator
	embedder  driven.EmbeddingService
	profile   domain.Profile
	timeout   time.Duration
}

// NewHealthService creates a new health service.
// The embedder may be nil when the store embeds on its own.
func NewHealthService(
	store driven.ChunkStore,
	generator driven.AnswerGenerator,
	embedder driven.EmbeddingService,
	profile domain.Profile,
) *HealthService {
	return &HealthService{
		store:     store,
		generator: generator,
		embedder:  embedder,
		profile:   profile,
		timeout:   DefaultProbeTimeout,
	}
}

// Check probes every backend.
// The store being down is unhealthy; a model backend being down is degraded.
func (s *HealthService) Check(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{
		Status:  domain.HealthHealthy,
		Profile: s.profile,
	}

	storeHealth := s.probe(ctx, ComponentStore, func(ctx context.Context) (string, error) {
		n, err := s.store.Count(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d fragments", n), nil
	})
	report.Components = append(report.Components, storeHealth)

	generatorHealth := s.probe(ctx, ComponentGenerator, func(ctx context.Context) (string, error) {
		if s.generator == nil {
			return "", domain.ErrLLMUnavailable
		}
		return s.generator.ModelName(), s.generator.Ping(ctx)
	})
	report.Components = append(report.Components, generatorHealth)

	if s.embedder != nil {
		report.Components = append(report.Components,
			s.probe(ctx, ComponentEmbedder, func(ctx context.Context) (string, error) {
				return s.embedder.ModelName(), s.embedder.Ping(ctx)
			}))
	}

	for _, c := range report.Components {
		if c.Healthy {
			continue
		}
		if c.Name == ComponentStore {
			report.Status = domain.HealthUnhealthy
			break
		}
		report.Status = domain.HealthDegraded
	}

	return report
}

func (s *HealthService) probe(
	ctx context.Context, name string, fn func(context.Context) (string, error),
) domain.ComponentHealth {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	detail, err := fn(probeCtx)
	if err != nil {
		return domain.ComponentHealth{Name: name, Healthy: false, Detail: err.Error()}
	}
	return domain.ComponentHealth{Name: name, Healthy: true, Detail: detail}
}
