// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// Theme is the colour palette for the chat screen.
type Theme struct {
	// Accent colours headings and the prompt.
	Accent lipgloss.Color

	// Question colours the user's questions in the transcript.
	Question lipgloss.Color

	// Text is the default text colour.
	Text lipgloss.Color

	// Dim is for previews, scores and help.
	Dim lipgloss.Color

	// Citation colours source filenames.
	Citation lipgloss.Color

	// Good, Caution and Bad map to high, medium and low confidence.
	Good    lipgloss.Color
	Caution lipgloss.Color
	Bad     lipgloss.Color

	// Frame is the input border colour.
	Frame lipgloss.Color

	// Bar is the status bar background.
	Bar lipgloss.Color
}

// DefaultTheme returns the dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:   lipgloss.Color("#7C3AED"),
		Question: lipgloss.Color("#06B6D4"),
		Text:     lipgloss.Color("#CDD6F4"),
		Dim:      lipgloss.Color("#6C7086"),
		Citation: lipgloss.Color("#89B4FA"),
		Good:     lipgloss.Color("#A6E3A1"),
		Caution:  lipgloss.Color("#F9E2AF"),
		Bad:      lipgloss.Color("#F38BA8"),
		Frame:    lipgloss.Color("#45475A"),
		Bar:      lipgloss.Color("#181825"),
	}
}

// Styles holds the rendered styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style

	// Question and Answer style the transcript.
	Question lipgloss.Style
	Answer   lipgloss.Style

	// SourceTitle, Score and Preview style a cited fragment.
	SourceTitle lipgloss.Style
	Score       lipgloss.Style
	Preview     lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	plain := lipgloss.NewStyle()
	return &Styles{
		theme: theme,

		Title:    plain.Bold(true).Foreground(theme.Accent),
		Subtitle: plain.Bold(true).Foreground(theme.Question),
		Normal:   plain.Foreground(theme.Text),
		Muted:    plain.Foreground(theme.Dim),
		Error:    plain.Foreground(theme.Bad),
		Success:  plain.Foreground(theme.Good),
		Warning:  plain.Foreground(theme.Caution),
		Help:     plain.Foreground(theme.Dim),

		InputField: plain.
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(0, 1),
		StatusBar: plain.
			Foreground(theme.Dim).
			Background(theme.Bar).
			Padding(0, 1),

		Question: plain.Bold(true).Foreground(theme.Question),
		Answer:   plain.Foreground(theme.Text).PaddingLeft(2),

		SourceTitle: plain.Foreground(theme.Citation),
		Score:       plain.Foreground(theme.Dim),
		Preview:     plain.Foreground(theme.Dim).Italic(true),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Confidence returns the style for a confidence badge.
func (s *Styles) Confidence(c domain.Confidence) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch c {
	case domain.ConfidenceHigh:
		return base.Foreground(s.theme.Good)
	case domain.ConfidenceMedium:
		return base.Foreground(s.theme.Caution)
	case domain.ConfidenceLow, domain.ConfidenceError:
		return base.Foreground(s.theme.Bad)
	default:
		return base.Foreground(s.theme.Dim)
	}
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
