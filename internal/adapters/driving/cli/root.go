// Package cli provides the complyqa command line interface.
// It is a driving adapter: commands translate flags into calls on the
// driving ports and render the results.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// PromptManager exposes the editable prompt templates.
type PromptManager interface {
	Load(name string) (string, error)
	Reset() error
	Dir() string
}

// Runner is a background task started by long-running commands.
type Runner interface {
	Run(ctx context.Context) error
}

// Services holds everything the commands call into.
// Only Settings is required; commands that need a missing service
// report it when run.
type Services struct {
	Answer   driving.AnswerService
	Ingest   driving.IngestService
	Health   driving.HealthService
	Settings driving.SettingsService
	Prompts  PromptManager

	// PromptNames lists the prompts PromptManager serves.
	PromptNames []string

	// PromptWatcher reloads prompts while serve or chat runs. Optional.
	PromptWatcher Runner

	// Accept filters document names for remote connectors.
	Accept func(name string) bool

	// Defaults are applied to questions before flags.
	Defaults domain.AnswerOptions

	// BackendErr explains why Answer, Ingest or Health are missing.
	BackendErr error
}

var (
	answerService   driving.AnswerService
	ingestService   driving.IngestService
	healthService   driving.HealthService
	settingsService driving.SettingsService
	promptManager   PromptManager
	promptNames     []string
	promptWatcher   Runner
	acceptFile      func(name string) bool
	defaultOptions  domain.AnswerOptions
	backendErr      error
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "complyqa",
	Short: "Answer compliance questions from your own documents",
	Long: `complyqa indexes compliance documents (policies, controls, audit evidence)
and answers questions about them with a language model, citing the
fragments each answer is based on.

Index documents first, then ask:
  complyqa index ./policies
  complyqa ask "How often are access reviews performed?"`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	answerService = s.Answer
	ingestService = s.Ingest
	healthService = s.Health
	settingsService = s.Settings
	promptManager = s.Prompts
	promptNames = s.PromptNames
	promptWatcher = s.PromptWatcher
	acceptFile = s.Accept
	defaultOptions = s.Defaults
	backendErr = s.BackendErr
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// VerboseRequested reports whether args enable verbose logging.
// It lets main turn on logging before the services are built.
func VerboseRequested(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "-v" || a == "--verbose" || a == "--verbose=true" {
			return true
		}
	}
	return false
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// notConfigured builds the error returned when a service is missing.
func notConfigured(name string) error {
	if backendErr != nil {
		return fmt.Errorf("%s service not configured: %w", name, backendErr)
	}
	return errors.New(name + " service not configured")
}

// startPromptWatcher runs the prompt watcher until ctx is done.
func startPromptWatcher(ctx context.Context) {
	if promptWatcher == nil {
		return
	}
	go func() {
		if err := promptWatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("prompt watcher stopped: %v", err)
		}
	}()
}
