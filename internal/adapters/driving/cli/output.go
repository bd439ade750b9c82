package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// Styles degrade to plain text when stdout is not a terminal.
var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	confidenceStyles = map[domain.Confidence]lipgloss.Style{
		domain.ConfidenceHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		domain.ConfidenceMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		domain.ConfidenceLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		domain.ConfidenceError:  errorStyle.Bold(true),
	}
)

const previewWidth = 100

func renderConfidence(c domain.Confidence) string {
	style, ok := confidenceStyles[c]
	if !ok {
		style = mutedStyle
	}
	return style.Render(string(c))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.SourceReference, showPreview bool) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println(headingStyle.Render(fmt.Sprintf("Sources (%d)", len(sources))))
	for i, s := range sources {
		cmd.Printf("  [%d] %s (chunk %d, %s) %.2f\n",
			i+1, s.Filename, s.ChunkIndex, s.FileType, s.RelevanceScore)
		if showPreview && s.ContentPreview != "" {
			cmd.Println("      " + mutedStyle.Render(clip(s.ContentPreview, previewWidth)))
		}
	}
}

// clip flattens whitespace and shortens s to at most width runes.
func clip(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
