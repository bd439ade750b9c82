// Command complyqa answers compliance questions from indexed documents.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/complyqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/complyqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/services"
	"github.com/custodia-labs/complyqa/internal/logger"
	"github.com/custodia-labs/complyqa/internal/normalisers"
	"github.com/custodia-labs/complyqa/internal/postprocessors"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional.
	_ = godotenv.Load()

	if cli.VerboseRequested(os.Args[1:]) {
		logger.SetVerbose(true)
	}
	cli.SetVersion(version)

	configDir, err := configHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening config: %v\n", err)
		return 1
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	promptStore, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening prompts: %v\n", err)
		return 1
	}

	normaliserRegistry := normalisers.Defaults()
	svc := cli.Services{
		Settings:    settingsService,
		Prompts:     promptStore,
		PromptNames: file.PromptNames(),
		Accept:      normaliserRegistry.Supports,
	}

	ctx := context.Background()
	backends, err := wire(ctx, settingsService, configStore, promptStore, normaliserRegistry, &svc)
	if err != nil {
		// Settings and prompts commands still work without backends.
		logger.Debug("backends unavailable: %v", err)
		svc.BackendErr = err
	}
	if backends != nil {
		defer backends.Close()
	}

	cli.SetServices(svc)

	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

// wire builds the backends and the services that depend on them.
func wire(
	ctx context.Context,
	settingsService *services.SettingsService,
	configStore *file.ConfigStore,
	promptStore *file.PromptStore,
	normaliserRegistry *normalisers.Registry,
	svc *cli.Services,
) (*ai.Backends, error) {
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	backends, err := ai.Init(ctx, *settings)
	if err != nil {
		return nil, err
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	chunker, err := postprocessors.BuildPipeline(registry,
		configStore.GetStringSlice("ingest.stages"), stageConfig(configStore, registry.Names()))
	if err != nil {
		backends.Close()
		return nil, fmt.Errorf("building ingest pipeline: %w", err)
	}

	svc.Answer = services.NewAnswerService(
		backends.Store, backends.Generator, promptStore,
		services.AnswerConfigFromSettings(settings.Pipeline),
	)
	svc.Ingest = services.NewIngestService(backends.Store, normaliserRegistry, chunker)
	svc.Health = services.NewHealthService(backends.Store, backends.Generator, backends.Embedder, settings.Profile)
	svc.Defaults = domain.AnswerOptions{ContextLimit: settings.Pipeline.ContextLimit}

	if watcher, err := file.NewPromptWatcher(promptStore); err != nil {
		logger.Warn("prompt files will not be reloaded: %v", err)
	} else {
		svc.PromptWatcher = watcher
	}

	return backends, nil
}

// stageConfig collects the [<stage>] tables from config.toml.
// Only keys that are set are included so stage defaults still apply.
func stageConfig(store *file.ConfigStore, stages []string) map[string]map[string]any {
	keys := map[string][]string{
		"chunker": {"chunk_size", "overlap"},
		"clean":   {"min_length"},
	}
	cfg := make(map[string]map[string]any, len(stages))
	for _, stage := range stages {
		for _, key := range keys[stage] {
			val, ok := store.Get(stage + "." + key)
			if !ok {
				continue
			}
			if cfg[stage] == nil {
				cfg[stage] = make(map[string]any)
			}
			cfg[stage][key] = val
		}
	}
	return cfg
}

// configHome returns $COMPLYQA_HOME or ~/.complyqa.
func configHome() (string, error) {
	if dir := os.Getenv("COMPLYQA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".complyqa"), nil
}
