package domain

const unknownDescription = "Unknown"

// Profile selects a family of backend defaults.
type Profile string

// Available profiles.
const (
	// ProfileLocal runs models through a local Ollama instance.
	ProfileLocal Profile = "local"

	// ProfileCloud uses hosted model APIs.
	ProfileCloud Profile = "cloud"
)

// IsValid returns true if the profile is recognised.
func (p Profile) IsValid() bool {
	return p == ProfileLocal || p == ProfileCloud
}

// String returns the string representation.
func (p Profile) String() string {
	return string(p)
}

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend identifies a chunk store implementation.
type StoreBackend string

// Available chunk store backends.
const (
	StoreMemory   StoreBackend = "memory"
	StoreSQLite   StoreBackend = "sqlite"
	StoreQdrant   StoreBackend = "qdrant"
	StorePGVector StoreBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreMemory, StoreSQLite, StoreQdrant, StorePGVector:
		return true
	default:
		return false
	}
}

// IsPersistent returns true if indexed fragments survive a restart.
func (b StoreBackend) IsPersistent() bool {
	return b != StoreMemory
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreMemory:
		return "In-memory (not persisted)"
	case StoreSQLite:
		return "SQLite (embedded file)"
	case StoreQdrant:
		return "Qdrant (REST)"
	case StorePGVector:
		return "PostgreSQL + pgvector"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOllama && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StoreSettings holds chunk store configuration.
type StoreSettings struct {
	// Backend selects the store implementation.
	Backend StoreBackend

	// Path is the data directory for the SQLite backend.
	Path string

	// URL is the Qdrant endpoint.
	URL string

	// APIKey is the optional Qdrant API key.
	APIKey string

	// Collection is the Qdrant collection or PostgreSQL table name.
	Collection string

	// DSN is the PostgreSQL connection string.
	DSN string
}

// PipelineSettings holds answer pipeline tuning.
type PipelineSettings struct {
	// ContextCharLimit caps the characters taken from each fragment.
	ContextCharLimit int

	// ContextLimit is the default number of fragments per question.
	ContextLimit int

	// Temperature is the generation temperature.
	Temperature float64

	// MaxTokens caps the generated answer length.
	MaxTokens int
}

// Settings holds all application settings.
type Settings struct {
	// Profile selects backend defaults.
	Profile Profile

	// LLM holds answer generator settings.
	LLM LLMSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Store holds chunk store settings.
	Store StoreSettings

	// Pipeline holds answer pipeline settings.
	Pipeline PipelineSettings
}

// Default pipeline values shared by both profiles.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1000

	// LocalContextCharLimit is the per-fragment cap for local models.
	LocalContextCharLimit = 800

	// CloudContextCharLimit is the per-fragment cap for hosted models.
	CloudContextCharLimit = 500

	// DefaultCollection is the Qdrant collection and PostgreSQL table name.
	DefaultCollection = "compliance_documents"
)

// DefaultSettings returns the defaults for a profile.
// An unknown profile falls back to local.
func DefaultSettings(profile Profile) Settings {
	pipeline := PipelineSettings{
		ContextCharLimit: LocalContextCharLimit,
		ContextLimit:     DefaultContextLimit,
		Temperature:      DefaultTemperature,
		MaxTokens:        DefaultMaxTokens,
	}

	if profile == ProfileCloud {
		pipeline.ContextCharLimit = CloudContextCharLimit
		return Settings{
			Profile: ProfileCloud,
			LLM: LLMSettings{
				Provider: AIProviderOpenAI,
				Model:    DefaultLLMModels()[AIProviderOpenAI],
			},
			Embedding: EmbeddingSettings{
				Provider: AIProviderOpenAI,
				Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
			},
			Store: StoreSettings{
				Backend:    StoreQdrant,
				URL:        "http://localhost:6333",
				Collection: DefaultCollection,
			},
			Pipeline: pipeline,
		}
	}

	return Settings{
		Profile: ProfileLocal,
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		Store: StoreSettings{
			Backend:    StoreSQLite,
			Collection: DefaultCollection,
		},
		Pipeline: pipeline,
	}
}

// AllStoreBackends returns every chunk store backend.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{StoreSQLite, StoreMemory, StoreQdrant, StorePGVector}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support answer generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4-turbo-preview",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
