// Package ai provides factory functions for creating AI and storage adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/complyqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/complyqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/complyqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/complyqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/complyqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Backends holds the adapters selected by settings.
type Backends struct {
	Embedder  driven.EmbeddingService
	Generator driven.AnswerGenerator
	Store     driven.ChunkStore
	Warnings  []string // Non-fatal issues found while wiring.
}

// Close releases all resources held by the backends.
func (b *Backends) Close() {
	if b.Store != nil {
		b.Store.Close()
	}
	if b.Generator != nil {
		b.Generator.Close()
	}
	if b.Embedder != nil {
		b.Embedder.Close()
	}
}

// Init creates every backend from settings without pinging the AI providers,
// so an unreachable model shows up as a degraded health report rather than a
// startup failure. A store that cannot be opened is fatal.
func Init(ctx context.Context, settings domain.Settings) (*Backends, error) {
	b := &Backends{}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	b.Embedder = embedder

	generator, err := CreateAnswerGenerator(&settings.LLM)
	if err != nil {
		b.Close()
		return nil, err
	}
	if generator == nil {
		b.Close()
		return nil, fmt.Errorf("%w: llm provider %q is not configured",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	b.Generator = generator

	store, err := CreateChunkStore(ctx, settings.Store, embedder)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Store = store

	if !settings.Store.Backend.IsPersistent() {
		b.Warnings = append(b.Warnings, "memory store selected: indexed documents are lost on exit")
	}
	for _, w := range b.Warnings {
		logger.Warn("%s", w)
	}
	logger.Debug("Backends: llm=%s/%s embedding=%s/%s store=%s",
		settings.LLM.Provider, generator.ModelName(),
		settings.Embedding.Provider, embedder.ModelName(), settings.Store.Backend)

	return b, nil
}

// ValidateEmbeddingConfig creates the configured embedding service and pings it.
// Unconfigured settings pass. Failures wrap domain.ErrEmbeddingUnavailable.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w. Run 'complyqa settings show' to check",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w). Run 'complyqa settings show' to check",
			domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateLLMConfig creates the configured answer generator and pings it.
// Unconfigured settings pass. Failures wrap domain.ErrLLMUnavailable.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	gen, err := CreateAnswerGenerator(settings)
	if err != nil {
		return fmt.Errorf("%w: %w. Run 'complyqa settings show' to check",
			domain.ErrLLMUnavailable, err)
	}
	if gen == nil {
		return nil
	}
	defer gen.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := gen.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w). Run 'complyqa settings show' to check",
			domain.ErrLLMUnavailable, err)
	}
	return nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		if settings != nil && settings.Provider == domain.AIProviderAnthropic {
			return nil, errors.New("anthropic does not support embeddings, use ollama or openai")
		}
		return nil, nil
	}

	dimensions := domain.EmbeddingDimensions()[settings.Model]

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateAnswerGenerator creates the appropriate answer generator based on settings.
// Returns nil if the provider is not configured.
func CreateAnswerGenerator(settings *domain.LLMSettings) (driven.AnswerGenerator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewGenerator(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		gen, err := openaillm.NewGenerator(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil

	case domain.AIProviderAnthropic:
		gen, err := anthropicllm.NewGenerator(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateChunkStore opens the chunk store selected by settings.
func CreateChunkStore(
	ctx context.Context, settings domain.StoreSettings, embedder driven.EmbeddingService,
) (driven.ChunkStore, error) {
	collection := settings.Collection
	if collection == "" {
		collection = domain.DefaultCollection
	}

	switch settings.Backend {
	case domain.StoreMemory:
		return memory.NewChunkStore(embedder), nil

	case domain.StoreSQLite, "":
		store, err := sqlite.NewStore(settings.Path, embedder)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil

	case domain.StoreQdrant:
		store, err := qdrant.NewStore(qdrant.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: collection,
		}, embedder)
		if err != nil {
			return nil, fmt.Errorf("open qdrant store: %w", err)
		}
		return store, nil

	case domain.StorePGVector:
		store, err := pgvector.NewStore(ctx, settings.DSN, collection, embedder)
		if err != nil {
			return nil, fmt.Errorf("open pgvector store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unsupported store backend: %s", domain.ErrInvalidInput, settings.Backend)
	}
}
