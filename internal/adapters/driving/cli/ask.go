package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// errAnswerFailed makes the command exit non-zero when the pipeline reported an error.
var errAnswerFailed = errors.New("answer pipeline reported an error")

var (
	askLimit     int
	askScope     []string
	askStream    bool
	askJSON      bool
	askNoPreview bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your compliance documents",
	Long: `Retrieves the most relevant indexed fragments and asks the configured
language model to answer from them. The answer is followed by the sources
it was built from and a confidence level (high, medium, low).

Use --scope to restrict retrieval to documents indexed with matching
metadata, for example --scope framework=soc2.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 0, "number of fragments to retrieve (1-10, default 5)")
	askCmd.Flags().StringArrayVar(&askScope, "scope", nil, "restrict retrieval to metadata key=value (repeatable)")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as it is generated")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON (one event per line with --stream)")
	askCmd.Flags().BoolVar(&askNoPreview, "no-preview", false, "hide source previews")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return notConfigured("answer")
	}

	question := strings.Join(args, " ")
	opts, err := buildOptions(askLimit, askScope)
	if err != nil {
		return err
	}

	if askStream {
		return streamAnswer(cmd, question, opts)
	}

	result, err := answerService.Answer(cmd.Context(), question, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		if err := printJSON(cmd, result); err != nil {
			return err
		}
	} else {
		printResult(cmd, result)
	}

	if result.Confidence == domain.ConfidenceError {
		return errAnswerFailed
	}
	return nil
}

func printResult(cmd *cobra.Command, result *domain.PipelineResult) {
	if result.Confidence == domain.ConfidenceError {
		cmd.Println(errorStyle.Render(result.Answer))
	} else {
		cmd.Println(result.Answer)
	}
	printSources(cmd, result.Sources, !askNoPreview)
	cmd.Println()
	cmd.Printf("Confidence: %s (%d fragments used)\n", renderConfidence(result.Confidence), result.ContextUsed)
}

func streamAnswer(cmd *cobra.Command, question string, opts domain.AnswerOptions) error {
	events, err := answerService.AnswerStream(cmd.Context(), question, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var (
		sources    []domain.SourceReference
		confidence = domain.ConfidenceLow
		used       int
		terminal   bool
		failed     bool
	)

	for ev := range events {
		if askJSON {
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			cmd.Println(string(data))
		}

		switch ev.Type {
		case domain.EventSourcesReady:
			sources, confidence, used = ev.Sources, ev.Confidence, ev.ContextUsed
		case domain.EventAnswerChunk:
			if !askJSON {
				cmd.Print(ev.Content)
			}
		case domain.EventError:
			failed = true
			if !askJSON {
				cmd.Println()
				cmd.Println(errorStyle.Render(ev.Error))
			}
		case domain.EventFinished:
		}
		terminal = terminal || ev.IsTerminal()
	}

	if !terminal {
		if err := cmd.Context().Err(); err != nil {
			return fmt.Errorf("ask cancelled: %w", err)
		}
		return errors.New("answer stream ended unexpectedly")
	}
	if failed {
		return errAnswerFailed
	}
	if askJSON {
		return nil
	}

	cmd.Println()
	printSources(cmd, sources, !askNoPreview)
	cmd.Println()
	cmd.Printf("Confidence: %s (%d fragments used)\n", renderConfidence(confidence), used)
	return nil
}

// buildOptions layers flag values over the configured defaults.
func buildOptions(limit int, scopePairs []string) (domain.AnswerOptions, error) {
	opts := domain.AnswerOptions{ContextLimit: defaultOptions.ContextLimit}
	if limit != 0 {
		opts.ContextLimit = limit
	}
	if opts.ContextLimit < 0 || opts.ContextLimit > domain.MaxContextLimit {
		return opts, fmt.Errorf("--limit must be %d-%d: %w",
			domain.MinContextLimit, domain.MaxContextLimit, domain.ErrInvalidInput)
	}

	scope, err := domain.ParseScope(scopePairs)
	if err != nil {
		return opts, fmt.Errorf("--scope must be key=value: %w", err)
	}
	if len(defaultOptions.Scope) > 0 || len(scope) > 0 {
		opts.Scope = make(domain.Scope, len(defaultOptions.Scope)+len(scope))
		for k, v := range defaultOptions.Scope {
			opts.Scope[k] = v
		}
		for k, v := range scope {
			opts.Scope[k] = v
		}
	}
	return opts, nil
}
