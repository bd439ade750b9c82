package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the backend profile, AI providers and chunk store.

Use subcommands to configure specific settings or run the interactive wizard.
Environment variables (COMPLYQA_PROFILE, OPENAI_API_KEY, ANTHROPIC_API_KEY,
QDRANT_URL, DATABASE_URL and others) override the saved values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsProfileCmd = &cobra.Command{
	Use:   "profile [local|cloud]",
	Short: "Set the backend profile",
	Long: `Set the backend profile. Switching profile resets providers, store and
pipeline tuning to that profile's defaults.

Available profiles:
  local  - Ollama models and an embedded SQLite store (800 chars per fragment)
  cloud  - OpenAI models and a Qdrant store (500 chars per fragment)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsProfile,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to index and retrieve fragments.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider that generates answers.`,
	RunE:  runSettingsLLM,
}

var settingsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Configure chunk store",
	Long:  `Configure where indexed fragments are stored.`,
	RunE:  runSettingsStore,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsProfileCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsStoreCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Profile]")
	cmd.Printf("  Profile: %s\n", settings.Profile)
	cmd.Println()

	// Embedding settings
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	// LLM settings
	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	// Store settings
	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend.Description())
	switch settings.Store.Backend {
	case domain.StoreSQLite:
		cmd.Printf("  Path: %s\n", settings.Store.Path)
	case domain.StoreQdrant:
		cmd.Printf("  URL: %s\n", settings.Store.URL)
		cmd.Printf("  Collection: %s\n", settings.Store.Collection)
		if settings.Store.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Store.APIKey))
		}
	case domain.StorePGVector:
		cmd.Printf("  DSN: %s\n", displayKey(settings.Store.DSN))
		cmd.Printf("  Table: %s\n", settings.Store.Collection)
	case domain.StoreMemory:
	}
	cmd.Println()

	// Pipeline settings
	cmd.Println("[Pipeline]")
	cmd.Printf("  Fragments per question: %d\n", settings.Pipeline.ContextLimit)
	cmd.Printf("  Characters per fragment: %d\n", settings.Pipeline.ContextCharLimit)
	cmd.Printf("  Temperature: %.2f\n", settings.Pipeline.Temperature)
	cmd.Printf("  Max tokens: %d\n", settings.Pipeline.MaxTokens)
	cmd.Println()

	// Validation
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'complyqa settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("complyqa Settings Wizard")
	cmd.Println("========================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	// Step 1: Profile
	cmd.Println("Step 1: Select Profile")
	cmd.Println("----------------------")
	profile, err := chooseProfile(cmd, reader, 1)
	if err != nil {
		return err
	}
	if err := settingsService.SetProfile(profile); err != nil {
		return fmt.Errorf("failed to set profile: %w", err)
	}
	cmd.Printf("Profile set to: %s\n\n", profile)

	// Step 2: Embedding provider
	cmd.Println("Step 2: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	// Step 3: LLM provider
	cmd.Println("Step 3: Configure LLM Provider")
	cmd.Println("------------------------------")
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	// Step 4: Store
	cmd.Println("Step 4: Configure Chunk Store")
	cmd.Println("-----------------------------")
	if err := configureStore(cmd, reader); err != nil {
		return err
	}

	// Final validation
	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsProfile(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var profile domain.Profile
	if len(args) == 1 {
		profile = domain.Profile(strings.ToLower(args[0]))
		if !profile.IsValid() {
			return fmt.Errorf("unknown profile %q: %w", args[0], domain.ErrInvalidInput)
		}
	} else {
		reader := bufio.NewReader(cmd.InOrStdin())
		cmd.Println("Select Profile")
		cmd.Println("--------------")
		var err error
		if profile, err = chooseProfile(cmd, reader, 0); err != nil {
			return err
		}
	}

	if err := settingsService.SetProfile(profile); err != nil {
		return fmt.Errorf("failed to set profile: %w", err)
	}

	cmd.Printf("Profile set to: %s\n", profile)

	settings, _ := settingsService.Get() //nolint:errcheck // Best-effort check
	if settings != nil {
		if !settings.LLM.IsConfigured() {
			cmd.Println("\nNote: the LLM provider needs an API key.")
			cmd.Println("Run 'complyqa settings llm' to configure.")
		}
		if !settings.Embedding.IsConfigured() {
			cmd.Println("\nNote: the embedding provider needs an API key.")
			cmd.Println("Run 'complyqa settings embedding' to configure.")
		}
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func runSettingsStore(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureStore(cmd, reader)
}

// chooseProfile prompts for a profile. A zero defaultVal makes the choice mandatory.
func chooseProfile(cmd *cobra.Command, reader *bufio.Reader, defaultVal int) (domain.Profile, error) {
	profiles := []domain.Profile{domain.ProfileLocal, domain.ProfileCloud}
	for i, p := range profiles {
		cmd.Printf("  %d. %s\n", i+1, p)
	}
	if defaultVal > 0 {
		cmd.Printf("\nEnter choice [%d]: ", defaultVal)
	} else {
		cmd.Print("\nEnter choice: ")
	}
	idx := parseChoice(readLine(reader), len(profiles), defaultVal)
	if idx == 0 {
		return "", errors.New("invalid selection")
	}
	return profiles[idx-1], nil
}

func configureStore(cmd *cobra.Command, reader *bufio.Reader) error {
	current := settingsService.GetDefaults().Store
	if settings, err := settingsService.Get(); err == nil {
		current = settings.Store
	}

	cmd.Println("Select Store Backend")
	backends := domain.AllStoreBackends()
	defaultIdx := 1
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
		if b == current.Backend {
			defaultIdx = i + 1
		}
	}
	cmd.Printf("\nEnter choice [%d]: ", defaultIdx)
	idx := parseChoice(readLine(reader), len(backends), defaultIdx)

	store := current
	store.Backend = backends[idx-1]

	switch store.Backend {
	case domain.StoreSQLite:
		store.Path = promptDefault(cmd, reader, "Data directory", store.Path)
	case domain.StoreQdrant:
		store.URL = promptDefault(cmd, reader, "Qdrant URL", orDefault(store.URL, "http://localhost:6333"))
		store.Collection = promptDefault(cmd, reader, "Collection", orDefault(store.Collection, domain.DefaultCollection))
		cmd.Print("Enter API key (blank for none): ")
		if key := readPassword(cmd, reader); key != "" {
			store.APIKey = key
		}
		cmd.Println()
	case domain.StorePGVector:
		cmd.Print("Enter PostgreSQL DSN: ")
		if dsn := readPassword(cmd, reader); dsn != "" {
			store.DSN = dsn
		}
		cmd.Println()
		if store.DSN == "" {
			return errors.New("a DSN is required for the pgvector store")
		}
		store.Collection = promptDefault(cmd, reader, "Table", orDefault(store.Collection, domain.DefaultCollection))
	case domain.StoreMemory:
		cmd.Println("Note: the in-memory store loses its fragments when complyqa exits.")
	}

	if err := settingsService.SetStore(store); err != nil {
		return fmt.Errorf("failed to configure store: %w", err)
	}

	cmd.Printf("Chunk store configured: %s\n\n", store.Backend.Description())
	return nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

func promptDefault(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	cmd.Printf("Enter %s [%s]: ", strings.ToLower(label), current)
	if v := readLine(reader); v != "" {
		return v
	}
	return current
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func displayKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when input is a terminal.
func readPassword(cmd *cobra.Command, reader *bufio.Reader) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
