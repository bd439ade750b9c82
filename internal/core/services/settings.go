package services

import (
	"fmt"
	"os"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyProfile          = "profile"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyStoreBackend     = "store.backend"
	keyStorePath        = "store.path"
	keyStoreURL         = "store.url"
	keyStoreAPIKey      = "store.api_key"
	keyStoreCollection  = "store.collection"
	keyStoreDSN         = "store.dsn"
	keyContextCharLimit = "pipeline.context_char_limit"
	keyContextLimit     = "pipeline.context_limit"
	keyTemperature      = "pipeline.temperature"
	keyMaxTokens        = "pipeline.max_tokens"
)

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOllamaBaseURL   = "OLLAMA_BASE_URL"
	EnvQdrantURL       = "QDRANT_URL"
	EnvQdrantAPIKey    = "QDRANT_API_KEY"
	EnvPostgresDSN     = "COMPLYQA_PG_DSN"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// SetEnvLookup replaces the environment lookup used for overrides.
func (s *SettingsService) SetEnvLookup(fn func(string) (string, bool)) {
	s.lookupEnv = fn
}

// Get retrieves current application settings.
// Stored values win over profile defaults; environment variables fill in
// credentials and endpoints that are not stored.
func (s *SettingsService) Get() (*domain.Settings, error) {
	profile := domain.Profile(s.configStore.GetString(keyProfile))
	if !profile.IsValid() {
		profile = domain.ProfileLocal
	}
	defaults := domain.DefaultSettings(profile)

	settings := &domain.Settings{
		Profile: profile,
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Store: domain.StoreSettings{
			Backend:    s.getBackend(defaults.Store.Backend),
			Path:       s.getString(keyStorePath, defaults.Store.Path),
			URL:        s.getString(keyStoreURL, defaults.Store.URL),
			APIKey:     s.configStore.GetString(keyStoreAPIKey),
			Collection: s.getString(keyStoreCollection, defaults.Store.Collection),
			DSN:        s.configStore.GetString(keyStoreDSN),
		},
		Pipeline: domain.PipelineSettings{
			ContextCharLimit: s.getInt(keyContextCharLimit, defaults.Pipeline.ContextCharLimit),
			ContextLimit:     s.getInt(keyContextLimit, defaults.Pipeline.ContextLimit),
			Temperature:      s.getFloat(keyTemperature, defaults.Pipeline.Temperature),
			MaxTokens:        s.getInt(keyMaxTokens, defaults.Pipeline.MaxTokens),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv fills empty credentials and endpoints from the environment.
func (s *SettingsService) applyEnv(settings *domain.Settings) {
	apiKeyFor := func(p domain.AIProvider) string {
		switch p {
		case domain.AIProviderOpenAI:
			return s.env(EnvOpenAIAPIKey)
		case domain.AIProviderAnthropic:
			return s.env(EnvAnthropicAPIKey)
		default:
			return ""
		}
	}

	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = apiKeyFor(settings.LLM.Provider)
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = apiKeyFor(settings.Embedding.Provider)
	}
	if url := s.env(EnvOllamaBaseURL); url != "" {
		if settings.LLM.Provider.IsLocal() && settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = url
		}
		if settings.Embedding.Provider.IsLocal() && settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = url
		}
	}
	if _, stored := s.configStore.Get(keyStoreURL); !stored {
		if url := s.env(EnvQdrantURL); url != "" {
			settings.Store.URL = url
		}
	}
	if settings.Store.APIKey == "" {
		settings.Store.APIKey = s.env(EnvQdrantAPIKey)
	}
	if settings.Store.DSN == "" {
		settings.Store.DSN = s.env(EnvPostgresDSN)
	}
}

// Save persists application settings.
// API keys are only written when set, so environment-provided keys are
// never copied to disk by a round trip through Get and Save.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyProfile, settings.Profile.String()},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyStoreBackend, string(settings.Store.Backend)},
		{keyStorePath, settings.Store.Path},
		{keyStoreURL, settings.Store.URL},
		{keyStoreCollection, settings.Store.Collection},
		{keyContextCharLimit, settings.Pipeline.ContextCharLimit},
		{keyContextLimit, settings.Pipeline.ContextLimit},
		{keyTemperature, settings.Pipeline.Temperature},
		{keyMaxTokens, settings.Pipeline.MaxTokens},
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key, env, value string
	}{
		{keyEmbedAPIKey, s.env(apiKeyEnv(settings.Embedding.Provider)), settings.Embedding.APIKey},
		{keyLLMAPIKey, s.env(apiKeyEnv(settings.LLM.Provider)), settings.LLM.APIKey},
		{keyStoreAPIKey, s.env(EnvQdrantAPIKey), settings.Store.APIKey},
		{keyStoreDSN, s.env(EnvPostgresDSN), settings.Store.DSN},
	}
	for _, sec := range secrets {
		if sec.value == "" || sec.value == sec.env {
			continue
		}
		if err := s.configStore.Set(sec.key, sec.value); err != nil {
			return fmt.Errorf("save %s: %w", sec.key, err)
		}
	}

	return s.configStore.Save()
}

// SetProfile switches the backend profile and resets profile defaults.
// Stored API keys are kept.
func (s *SettingsService) SetProfile(profile domain.Profile) error {
	if !profile.IsValid() {
		return fmt.Errorf("invalid profile: %s", profile)
	}

	current, err := s.Get()
	if err != nil {
		return err
	}

	next := domain.DefaultSettings(profile)
	next.LLM.APIKey = s.configStore.GetString(keyLLMAPIKey)
	next.Embedding.APIKey = s.configStore.GetString(keyEmbedAPIKey)
	next.Store.APIKey = current.Store.APIKey
	next.Store.DSN = current.Store.DSN

	return s.Save(&next)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		apiKey = s.env(apiKeyEnv(provider))
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		apiKey = s.env(apiKeyEnv(provider))
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetStore configures the chunk store backend.
func (s *SettingsService) SetStore(store domain.StoreSettings) error {
	if !store.Backend.IsValid() {
		return fmt.Errorf("invalid store backend: %s", store.Backend)
	}
	if store.Backend == domain.StorePGVector && store.DSN == "" && s.env(EnvPostgresDSN) == "" {
		return fmt.Errorf("pgvector backend requires a DSN")
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if store.Collection == "" {
		store.Collection = domain.DefaultCollection
	}
	settings.Store = store

	return s.Save(settings)
}

// Validate checks if current settings are complete.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrLLMUnavailable, settings.LLM.Provider.Description())
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: %s is not usable for embeddings",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider.Description())
	}
	if !settings.Store.Backend.IsValid() {
		return fmt.Errorf("invalid store backend: %s", settings.Store.Backend)
	}
	if settings.Store.Backend == domain.StorePGVector && settings.Store.DSN == "" {
		return fmt.Errorf("%w: pgvector backend requires a DSN", domain.ErrStoreUnavailable)
	}
	if settings.Pipeline.ContextLimit < domain.MinContextLimit || settings.Pipeline.ContextLimit > domain.MaxContextLimit {
		return fmt.Errorf("pipeline.context_limit must be %d-%d", domain.MinContextLimit, domain.MaxContextLimit)
	}
	return nil
}

// GetDefaults returns default settings for the current profile.
func (s *SettingsService) GetDefaults() domain.Settings {
	profile := domain.Profile(s.configStore.GetString(keyProfile))
	return domain.DefaultSettings(profile)
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) env(key string) string {
	if s.lookupEnv == nil || key == "" {
		return ""
	}
	v, _ := s.lookupEnv(key)
	return v
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StoreBackend) domain.StoreBackend {
	backend := domain.StoreBackend(s.configStore.GetString(keyStoreBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func apiKeyEnv(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return EnvOpenAIAPIKey
	case domain.AIProviderAnthropic:
		return EnvAnthropicAPIKey
	default:
		return ""
	}
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a custom endpoint for local providers and clears it for
// cloud providers, which use their adapter defaults.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return "http://localhost:11434"
	}
	return current
}
