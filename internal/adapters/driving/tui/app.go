package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/views/chat"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	// chatView is the only view: transcript plus question input.
	chatView *chat.View

	// showHelp toggles the full key help panel.
	showHelp bool

	width  int
	height int

	// ready indicates the first window size has arrived.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	h := help.New()
	h.ShowAll = true

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		help:     h,
		chatView: chat.NewView(s, km, ports.Answer, ports.Options),
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("complyqa"),
		a.chatView.Init(),
		a.checkHealth(),
	)
}

// checkHealth probes the backends once at startup.
func (a *App) checkHealth() tea.Cmd {
	if a.ports.Health == nil {
		return nil
	}
	ctx, svc := a.ctx, a.ports.Health
	return func() tea.Msg {
		return messages.HealthChecked{Report: svc.Check(ctx)}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.help.Width = msg.Width
		a.chatView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if keymap.Matches(key, a.keymap.Quit) {
			return a, tea.Quit
		}
		if keymap.Matches(key, a.keymap.Help) {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp && keymap.Matches(key, a.keymap.Cancel) {
			a.showHelp = false
			return a, nil
		}
	}

	a.chatView, cmd = a.chatView.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left,
			a.styles.Title.Render("Keys"),
			"",
			a.help.View(a.keymap),
			"",
			a.styles.Help.Render("[f1/esc] back to chat"),
		)
	}
	return a.chatView.View()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Chat returns the chat view.
func (a *App) Chat() *chat.View {
	return a.chatView
}

// ShowingHelp returns whether the help panel is visible.
func (a *App) ShowingHelp() bool {
	return a.showHelp
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.help.Width = width
	a.chatView.SetDimensions(width, height)
}
