package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsCmd_NotConfigured(t *testing.T) {
	_, err := execute(t, "", "settings", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestSettingsCmd_Show(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Profile: local")
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "[LLM]")
	assert.Contains(t, out, "Backend: SQLite (embedded file)")
	assert.Contains(t, out, "Characters per fragment: 800")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsCmd_ShowMasksKeysAndWarns(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings = domain.DefaultSettings(domain.ProfileCloud)
	ts.settings.settings.LLM.APIKey = "sk-1234567890abcdef"
	ts.settings.validateErr = errors.New("embedding API key is required")

	out, err := execute(t, "", "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "API Key: (not set)")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "Warning: embedding API key is required")
}

func TestSettingsProfileCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "profile", "cloud")

	require.NoError(t, err)
	assert.Equal(t, domain.ProfileCloud, ts.settings.settings.Profile)
	assert.Contains(t, out, "Profile set to: cloud")
	assert.Contains(t, out, "complyqa settings llm")
}

func TestSettingsProfileCmd_Interactive(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Profile = domain.ProfileCloud

	_, err := execute(t, "1\n", "settings", "profile")

	require.NoError(t, err)
	assert.Equal(t, domain.ProfileLocal, ts.settings.settings.Profile)
}

func TestSettingsProfileCmd_Invalid(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "settings", "profile", "hybrid")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "9\n", "settings", "profile")
	assert.Error(t, err)
}

func TestSettingsLLMCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "2\n\nsk-test-key-123456\n", "settings", "llm")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, ts.settings.settings.LLM.Provider)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderOpenAI], ts.settings.settings.LLM.Model)
	assert.Equal(t, "sk-test-key-123456", ts.settings.settings.LLM.APIKey)
	assert.Contains(t, out, "Validating configuration... OK")
}

func TestSettingsLLMCmd_UnreachableProviderFails(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.llmPingErr = fmt.Errorf("%w: service unreachable (401)", domain.ErrLLMUnavailable)

	out, err := execute(t, "2\n\nsk-bad-key\n", "settings", "llm")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "LLM configuration validation failed")
	assert.Contains(t, out, "Validating configuration... FAILED")
	assert.NotContains(t, out, "LLM provider configured")
}

func TestSettingsEmbeddingCmd_UnreachableProviderFails(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.embeddingPingErr = fmt.Errorf("%w: connection refused", domain.ErrEmbeddingUnavailable)

	_, err := execute(t, "1\n\n", "settings", "embedding")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSettingsWizardCmd_StopsOnUnreachableProvider(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.embeddingPingErr = fmt.Errorf("%w: connection refused", domain.ErrEmbeddingUnavailable)

	out, err := execute(t, "1\n1\n\n1\n\n2\n", "settings", "wizard")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.NotContains(t, out, "All settings are valid and saved.")
}

func TestSettingsLLMCmd_MissingKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "3\n\n\n", "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestSettingsEmbeddingCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "1\nmxbai-embed-large\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, ts.settings.settings.Embedding.Provider)
	assert.Equal(t, "mxbai-embed-large", ts.settings.settings.Embedding.Model)
}

func TestSettingsStoreCmd_Qdrant(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "3\nhttp://qdrant:6333\n\nqd-secret\n", "settings", "store")

	require.NoError(t, err)
	store := ts.settings.settings.Store
	assert.Equal(t, domain.StoreQdrant, store.Backend)
	assert.Equal(t, "http://qdrant:6333", store.URL)
	assert.Equal(t, domain.DefaultCollection, store.Collection)
	assert.Equal(t, "qd-secret", store.APIKey)
	assert.Contains(t, out, "Chunk store configured: Qdrant (REST)")
}

func TestSettingsStoreCmd_PGVectorRequiresDSN(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "4\n\n", "settings", "store")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestSettingsStoreCmd_KeepsCurrentByDefault(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "\n/var/lib/complyqa\n", "settings", "store")

	require.NoError(t, err)
	assert.Equal(t, domain.StoreSQLite, ts.settings.settings.Store.Backend)
	assert.Equal(t, "/var/lib/complyqa", ts.settings.settings.Store.Path)
}

func TestSettingsWizardCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	input := "1\n" + // profile local
		"1\n\n" + // embedding ollama, default model
		"1\n\n" + // llm ollama, default model
		"2\n" // memory store

	out, err := execute(t, input, "settings", "wizard")

	require.NoError(t, err)
	assert.Equal(t, domain.ProfileLocal, ts.settings.settings.Profile)
	assert.Equal(t, domain.StoreMemory, ts.settings.settings.Store.Backend)
	assert.Contains(t, out, "All settings are valid and saved.")
}
