package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// errMalformedFragment marks store output that violates fragment invariants.
var errMalformedFragment = errors.New("malformed fragment")

// AnswerConfig holds pipeline tuning.
type AnswerConfig struct {
	// ContextCharLimit caps the characters taken from each fragment.
	ContextCharLimit int

	// Temperature is passed to the answer generator.
	Temperature float64

	// MaxTokens is passed to the answer generator.
	MaxTokens int

	// FallbackAnswer is returned when retrieval finds nothing.
	FallbackAnswer string
}

// DefaultAnswerConfig returns the pipeline defaults for the local profile.
func DefaultAnswerConfig() AnswerConfig {
	return AnswerConfig{
		ContextCharLimit: domain.LocalContextCharLimit,
		Temperature:      domain.DefaultTemperature,
		MaxTokens:        domain.DefaultMaxTokens,
		FallbackAnswer:   domain.InsufficientInformationAnswer,
	}
}

// AnswerConfigFromSettings derives pipeline tuning from application settings.
func AnswerConfigFromSettings(s domain.PipelineSettings) AnswerConfig {
	cfg := DefaultAnswerConfig()
	if s.ContextCharLimit > 0 {
		cfg.ContextCharLimit = s.ContextCharLimit
	}
	if s.Temperature > 0 {
		cfg.Temperature = s.Temperature
	}
	if s.MaxTokens > 0 {
		cfg.MaxTokens = s.MaxTokens
	}
	return cfg
}

// AnswerService is the retrieval-augmented answer pipeline.
// It holds no per-request state and is safe for concurrent use.
type AnswerService struct {
	store     driven.ChunkStore
	generator driven.AnswerGenerator
	prompts   *PromptRenderer
	assembler *ContextAssembler
	cfg       AnswerConfig
}

// NewAnswerService creates the pipeline. The promptStore is optional.
func NewAnswerService(
	store driven.ChunkStore,
	generator driven.AnswerGenerator,
	promptStore driven.PromptStore,
	cfg AnswerConfig,
) *AnswerService {
	if cfg.FallbackAnswer == "" {
		cfg.FallbackAnswer = domain.InsufficientInformationAnswer
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = domain.DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = domain.DefaultMaxTokens
	}
	return &AnswerService{
		store:     store,
		generator: generator,
		prompts:   NewPromptRenderer(promptStore),
		assembler: NewContextAssembler(cfg.ContextCharLimit),
		cfg:       cfg,
	}
}

// Answer runs the pipeline once.
func (s *AnswerService) Answer(
	ctx context.Context, question string, opts domain.AnswerOptions,
) (*domain.PipelineResult, error) {
	opts, err := prepare(question, opts)
	if err != nil {
		return nil, fmt.Errorf("answer: %w", err)
	}

	logger.Section("Answer Pipeline")
	logger.Debug("Question: %q", question)
	logger.Debug("Context limit: %d, scope: %v", opts.ContextLimit, opts.Scope)

	fragments, err := s.retrieve(ctx, question, opts)
	if err != nil {
		logger.Warn("Retrieval failed: %v", err)
		return &domain.PipelineResult{
			Answer:     retrievalDiagnostic(err),
			Sources:    []domain.SourceReference{},
			Confidence: domain.ConfidenceError,
		}, nil
	}

	if len(fragments) == 0 {
		logger.Debug("No fragments retrieved, returning fallback answer")
		return s.fallbackResult(), nil
	}

	sources := FormatSources(fragments)
	confidence := EstimateConfidence(fragments)
	logger.Debug("Retrieved %d fragments, confidence %s", len(fragments), confidence)

	system, prompt, err := s.prompts.Render(question, s.assembler.Build(fragments))
	if err == nil {
		logger.Debug("Prompt length: %d chars", len(prompt))
		var answer string
		answer, err = s.generator.Generate(ctx, prompt, system, s.generateOptions())
		if err == nil {
			return &domain.PipelineResult{
				Answer:      answer,
				Sources:     sources,
				Confidence:  confidence,
				ContextUsed: len(sources),
			}, nil
		}
	}

	logger.Warn("Generation failed: %v", err)
	return &domain.PipelineResult{
		Answer:      generationDiagnostic(err),
		Sources:     sources,
		Confidence:  domain.ConfidenceError,
		ContextUsed: len(sources),
	}, nil
}

// AnswerStream runs the pipeline and streams progress events.
// The returned channel is closed after the terminal event, or early
// without a terminal event if ctx is cancelled.
func (s *AnswerService) AnswerStream(
	ctx context.Context, question string, opts domain.AnswerOptions,
) (<-chan domain.ProgressEvent, error) {
	opts, err := prepare(question, opts)
	if err != nil {
		return nil, fmt.Errorf("answer stream: %w", err)
	}

	out := make(chan domain.ProgressEvent)
	go s.stream(ctx, question, opts, out)
	return out, nil
}

func (s *AnswerService) stream(
	ctx context.Context, question string, opts domain.AnswerOptions, out chan<- domain.ProgressEvent,
) {
	defer close(out)

	emit := func(ev domain.ProgressEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	logger.Section("Answer Pipeline (stream)")
	logger.Debug("Question: %q", question)

	fragments, err := s.retrieve(ctx, question, opts)
	if err != nil {
		logger.Warn("Retrieval failed: %v", err)
		emit(domain.ErrorEvent(retrievalDiagnostic(err)))
		return
	}

	if len(fragments) == 0 {
		logger.Debug("No fragments retrieved, streaming fallback answer")
		if emit(domain.AnswerChunkEvent(s.cfg.FallbackAnswer)) {
			emit(domain.FinishedEvent())
		}
		return
	}

	sources := FormatSources(fragments)
	if !emit(domain.SourcesReadyEvent(sources, EstimateConfidence(fragments), len(sources))) {
		return
	}

	system, prompt, err := s.prompts.Render(question, s.assembler.Build(fragments))
	if err != nil {
		emit(domain.ErrorEvent(generationDiagnostic(err)))
		return
	}

	chunks, err := s.generator.GenerateStream(ctx, prompt, system, s.generateOptions())
	if err != nil {
		logger.Warn("Generation failed: %v", err)
		emit(domain.ErrorEvent(generationDiagnostic(err)))
		return
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			logger.Warn("Generation stream failed: %v", chunk.Err)
			emit(domain.ErrorEvent(generationDiagnostic(chunk.Err)))
			return
		}
		if chunk.Text == "" {
			continue
		}
		if !emit(domain.AnswerChunkEvent(chunk.Text)) {
			return
		}
	}

	// A generator closes its stream early when ctx is cancelled; that is
	// not a completed answer.
	if ctx.Err() != nil {
		logger.Debug("Stream cancelled: %v", ctx.Err())
		return
	}
	emit(domain.FinishedEvent())
}

// Search returns the source references for a query without generating an answer.
func (s *AnswerService) Search(
	ctx context.Context, query string, opts domain.AnswerOptions,
) ([]domain.SourceReference, error) {
	opts, err := prepare(query, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	fragments, err := s.retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return FormatSources(fragments), nil
}

// retrieve queries the store with the caller's limit and scope and
// returns at most ContextLimit well-formed fragments in rank order.
func (s *AnswerService) retrieve(
	ctx context.Context, question string, opts domain.AnswerOptions,
) ([]domain.RankedFragment, error) {
	fragments, err := s.store.Query(ctx, question, opts.ContextLimit, opts.Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err)
	}

	for i, f := range fragments {
		if f.Content == "" || math.IsNaN(f.Score) || f.Score < 0 || f.Score > 1 {
			return nil, fmt.Errorf("%w: %w at rank %d", domain.ErrRetrievalFailed, errMalformedFragment, i)
		}
	}

	ranked := make([]domain.RankedFragment, len(fragments))
	copy(ranked, fragments)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > opts.ContextLimit {
		logger.Debug("Store returned %d fragments, keeping %d", len(ranked), opts.ContextLimit)
		ranked = ranked[:opts.ContextLimit]
	}
	return ranked, nil
}

func (s *AnswerService) fallbackResult() *domain.PipelineResult {
	return &domain.PipelineResult{
		Answer:      s.cfg.FallbackAnswer,
		Sources:     []domain.SourceReference{},
		Confidence:  domain.ConfidenceLow,
		ContextUsed: 0,
	}
}

func (s *AnswerService) generateOptions() driven.GenerateOptions {
	return driven.GenerateOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
}

// prepare validates the question and applies option defaults.
func prepare(question string, opts domain.AnswerOptions) (domain.AnswerOptions, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return opts, fmt.Errorf("question must be 1-%d characters: %w", domain.MaxQuestionLength, err)
	}
	return opts.Normalise()
}

func retrievalDiagnostic(err error) string {
	return "I encountered an error while retrieving relevant documents: " + err.Error()
}

func generationDiagnostic(err error) string {
	return "I encountered an error while generating the answer: " + err.Error()
}
