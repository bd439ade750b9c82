package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Show or reset the answer prompts",
	Long: `The system prompt and user template used to answer questions are plain
files that can be edited. Missing or empty files fall back to the built-in
defaults. The user template must contain {context} and {question}.

Running servers reload the files when they change.`,
	RunE: runPromptsShow,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the prompts in use",
	RunE:  runPromptsShow,
}

var promptsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the prompt directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if promptManager == nil {
			return errors.New("prompt store not configured")
		}
		cmd.Println(promptManager.Dir())
		return nil
	},
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in prompts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if promptManager == nil {
			return errors.New("prompt store not configured")
		}
		if err := promptManager.Reset(); err != nil {
			return fmt.Errorf("failed to reset prompts: %w", err)
		}
		cmd.Printf("Prompts in %s restored to defaults.\n", promptManager.Dir())
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsPathCmd)
	promptsCmd.AddCommand(promptsResetCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsShow(cmd *cobra.Command, _ []string) error {
	if promptManager == nil {
		return errors.New("prompt store not configured")
	}

	cmd.Printf("Prompt directory: %s\n", promptManager.Dir())
	for _, name := range promptNames {
		text, err := promptManager.Load(name)
		if err != nil {
			return fmt.Errorf("failed to load prompt %s: %w", name, err)
		}
		cmd.Println()
		cmd.Println(headingStyle.Render("[" + name + "]"))
		cmd.Println(text)
	}
	return nil
}
