// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// Bar displays application status, backend health and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	health  domain.HealthStatus
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var state string
	switch s.state {
	case StateThinking:
		state = s.styles.Muted.Render("Retrieving...")
	case StateStreaming:
		state = s.styles.Normal.Render("Answering...")
	case StateError:
		if s.message != "" {
			state = s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		} else {
			state = s.styles.Error.Render("Error")
		}
	default:
		state = s.styles.Muted.Render("Ready")
	}

	if s.health == "" {
		return state
	}
	return s.renderHealth() + "  " + state
}

func (s *Bar) renderHealth() string {
	switch s.health {
	case domain.HealthHealthy:
		return s.styles.Success.Render("● healthy")
	case domain.HealthDegraded:
		return s.styles.Warning.Render("● degraded")
	default:
		return s.styles.Error.Render("● " + string(s.health))
	}
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateThinking || s.state == StateStreaming {
		bindings = s.keymap.StreamingHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
	if state != StateError {
		s.message = ""
	}
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetError switches to the error state with a message.
func (s *Bar) SetError(message string) {
	s.state = StateError
	s.message = message
}

// Message returns the current error message.
func (s *Bar) Message() string {
	return s.message
}

// SetHealth records the last backend health status.
func (s *Bar) SetHealth(status domain.HealthStatus) {
	s.health = status
}

// Health returns the last backend health status.
func (s *Bar) Health() domain.HealthStatus {
	return s.health
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
