package cli

import (
	"context"
	"errors"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	result *domain.PipelineResult
	events []domain.ProgressEvent
	err    error

	question string
	opts     domain.AnswerOptions
}

func (m *mockAnswerService) Answer(
	_ context.Context, question string, opts domain.AnswerOptions,
) (*domain.PipelineResult, error) {
	m.question, m.opts = question, opts
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockAnswerService) AnswerStream(
	_ context.Context, question string, opts domain.AnswerOptions,
) (<-chan domain.ProgressEvent, error) {
	m.question, m.opts = question, opts
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.ProgressEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *mockAnswerService) Search(
	_ context.Context, query string, opts domain.AnswerOptions,
) ([]domain.SourceReference, error) {
	m.question, m.opts = query, opts
	if m.result == nil {
		return nil, m.err
	}
	return m.result.Sources, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	results    []driving.IngestResult
	sourceErrs []error
	err        error

	source  driven.DocumentSource
	deleted []int64
}

func (m *mockIngestService) IngestRaw(
	_ context.Context, raw *domain.RawDocument, _ int64,
) (*driving.IngestResult, error) {
	return &driving.IngestResult{Filename: raw.Filename}, m.err
}

func (m *mockIngestService) IngestSource(
	_ context.Context, source driven.DocumentSource, onError func(error),
) ([]driving.IngestResult, error) {
	m.source = source
	for _, err := range m.sourceErrs {
		onError(err)
	}
	return m.results, m.err
}

func (m *mockIngestService) Watch(
	_ context.Context, _ driven.WatchableSource, _ func(domain.DocumentChange, error),
) error {
	return m.err
}

func (m *mockIngestService) DeleteDocument(_ context.Context, documentID int64) error {
	m.deleted = append(m.deleted, documentID)
	return m.err
}

// mockHealthService is a mock implementation of driving.HealthService.
type mockHealthService struct {
	report domain.HealthReport
}

func (m *mockHealthService) Check(_ context.Context) domain.HealthReport {
	return m.report
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.Settings
	validateErr error

	// Ping results for the provider checks run after saving.
	embeddingPingErr error
	llmPingErr       error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.Settings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetProfile(profile domain.Profile) error {
	if !profile.IsValid() {
		return domain.ErrInvalidInput
	}
	m.settings = domain.DefaultSettings(profile)
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding = domain.EmbeddingSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetStore(store domain.StoreSettings) error {
	if !store.Backend.IsValid() {
		return domain.ErrInvalidInput
	}
	m.settings.Store = store
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings(m.settings.Profile)
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.embeddingPingErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.llmPingErr
}

// mockPromptManager is an in-memory PromptManager.
type mockPromptManager struct {
	prompts map[string]string
	resets  int
}

func (m *mockPromptManager) Load(name string) (string, error) {
	text, ok := m.prompts[name]
	if !ok {
		return "", errors.New("unknown prompt")
	}
	return text, nil
}

func (m *mockPromptManager) Reset() error {
	m.resets++
	return nil
}

func (m *mockPromptManager) Dir() string {
	return "/tmp/complyqa/prompts"
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	answer   *mockAnswerService
	ingest   *mockIngestService
	health   *mockHealthService
	settings *mockSettingsService
	prompts  *mockPromptManager
}

func testResult() *domain.PipelineResult {
	sources := []domain.SourceReference{{
		DocumentID:     42,
		Filename:       "access-policy.md",
		ChunkIndex:     1,
		RelevanceScore: 0.87,
		FileType:       "md",
		ContentPreview: "Access reviews are performed quarterly by system owners.",
	}}
	return &domain.PipelineResult{
		Answer:      "Access reviews are performed quarterly.",
		Sources:     sources,
		Confidence:  domain.ConfidenceHigh,
		ContextUsed: len(sources),
	}
}

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		answer: &mockAnswerService{result: testResult()},
		ingest: &mockIngestService{},
		health: &mockHealthService{report: domain.HealthReport{
			Status:  domain.HealthHealthy,
			Profile: domain.ProfileLocal,
			Components: []domain.ComponentHealth{
				{Name: "store", Healthy: true, Detail: "sqlite"},
			},
		}},
		settings: &mockSettingsService{settings: domain.DefaultSettings(domain.ProfileLocal)},
		prompts: &mockPromptManager{prompts: map[string]string{
			"compliance_system": "You are a compliance expert.",
			"compliance_user":   "{context}\n{question}",
		}},
	}

	SetServices(Services{
		Answer:      ts.answer,
		Ingest:      ts.ingest,
		Health:      ts.health,
		Settings:    ts.settings,
		Prompts:     ts.prompts,
		PromptNames: []string{"compliance_system", "compliance_user"},
	})

	return ts, func() {
		SetServices(Services{})
	}
}
