package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui"
)

var chatLimit int

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Launch the interactive terminal UI",
	Long: `Launch an interactive terminal chat for asking compliance questions.

Answers stream in as they are generated, followed by their sources and a
confidence level.

Controls:
  Enter      - Ask
  Esc        - Stop the current answer
  PgUp/PgDn  - Scroll the transcript
  Ctrl+L     - Clear the transcript
  F1         - Toggle help
  Ctrl+C     - Quit`,
	Aliases: []string{"tui"},
	Args:    cobra.NoArgs,
	RunE:    runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&chatLimit, "limit", "n", 0, "number of fragments to retrieve (1-10, default 5)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if answerService == nil {
		return notConfigured("answer")
	}

	opts, err := buildOptions(chatLimit, nil)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{
		Answer:  answerService,
		Health:  healthService,
		Options: opts,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	startPromptWatcher(cmd.Context())

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
