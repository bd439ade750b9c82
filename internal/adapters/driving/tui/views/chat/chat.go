// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/components/sources"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
)

// chromeHeight is the rows taken by the header, input and status bar.
const chromeHeight = 6

// Exchange is one question and its streamed answer.
type Exchange struct {
	Question   string
	Answer     string
	Sources    []domain.SourceReference
	Confidence domain.Confidence
	Err        string

	// HasSources is set once a SourcesReady event arrived.
	HasSources bool

	// Done is set by a terminal event or when the stream closes.
	Done bool

	// Cancelled is set when the stream closed without a terminal event.
	Cancelled bool
}

// View is the chat view: a scrolling transcript above a question input.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	sources   *sources.List
	statusbar *status.Bar
	viewport  viewport.Model
	spinner   spinner.Model

	answerService driving.AnswerService
	opts          domain.AnswerOptions
	ctx           context.Context
	cancel        context.CancelFunc
	events        <-chan domain.ProgressEvent

	exchanges []*Exchange
	streaming bool
	width     int
	height    int
}

// NewView creates a new chat view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
	opts domain.AnswerOptions,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Subtitle

	v := &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		sources:       sources.NewList(s),
		statusbar:     status.NewBar(s, km),
		viewport:      viewport.New(80, 24-chromeHeight),
		spinner:       sp,
		answerService: answerService,
		opts:          opts,
		ctx:           context.Background(),
	}
	v.SetDimensions(80, 24)
	return v
}

// WithContext sets the parent context for answer streams.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerStarted:
		return v.handleAnswerStarted(msg)

	case messages.ProgressReceived:
		return v.handleProgress(msg.Event)

	case messages.StreamClosed:
		if ex := v.current(); ex != nil && !ex.Done {
			ex.Done = true
			ex.Cancelled = true
		}
		v.finish(status.StateReady)
		return v, nil

	case messages.HealthChecked:
		v.statusbar.SetHealth(msg.Report.Status)
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetError(msg.Err.Error())
		return v, nil

	case spinner.TickMsg:
		if !v.streaming {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh()
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Cancel):
		if v.streaming && v.cancel != nil {
			v.cancel()
		}
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollUp):
		v.viewport.SetYOffset(v.viewport.YOffset - v.viewport.Height/2)
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollDown):
		v.viewport.SetYOffset(v.viewport.YOffset + v.viewport.Height/2)
		return v, nil

	case keymap.Matches(key, v.keymap.Clear):
		if !v.streaming {
			v.exchanges = nil
			v.statusbar.SetState(status.StateReady)
			v.refresh()
		}
		return v, nil

	case keymap.Matches(key, v.keymap.Submit):
		return v.submit()
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts answering the typed question.
func (v *View) submit() (*View, tea.Cmd) {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.streaming {
		return v, nil
	}
	if v.answerService == nil {
		v.statusbar.SetError("answer service not configured")
		return v, nil
	}

	v.input.Reset()
	v.exchanges = append(v.exchanges, &Exchange{Question: question})
	v.streaming = true
	v.statusbar.SetState(status.StateThinking)
	v.refresh()

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel

	return v, tea.Batch(startAnswer(ctx, v.answerService, question, v.opts), v.spinner.Tick)
}

func (v *View) handleAnswerStarted(msg messages.AnswerStarted) (*View, tea.Cmd) {
	if msg.Err != nil {
		if ex := v.current(); ex != nil {
			ex.Err = msg.Err.Error()
			if errors.Is(msg.Err, domain.ErrInvalidInput) {
				ex.Err = "question must be 1-2000 characters"
			}
			ex.Done = true
		}
		v.finish(status.StateError)
		v.statusbar.SetError(msg.Err.Error())
		return v, nil
	}

	v.events = msg.Events
	return v, waitForEvent(v.events)
}

func (v *View) handleProgress(ev domain.ProgressEvent) (*View, tea.Cmd) {
	ex := v.current()
	if ex == nil {
		return v, nil
	}

	switch ev.Type {
	case domain.EventSourcesReady:
		ex.Sources = ev.Sources
		ex.Confidence = ev.Confidence
		ex.HasSources = true
		v.statusbar.SetState(status.StateStreaming)
	case domain.EventAnswerChunk:
		ex.Answer += ev.Content
		v.statusbar.SetState(status.StateStreaming)
	case domain.EventError:
		ex.Err = ev.Error
		ex.Done = true
	case domain.EventFinished:
		ex.Done = true
	}

	if ev.IsTerminal() {
		state := status.StateReady
		if ev.Type == domain.EventError {
			state = status.StateError
		}
		v.finish(state)
		if state == status.StateError {
			v.statusbar.SetError(ev.Error)
		}
		return v, nil
	}

	v.refresh()
	return v, waitForEvent(v.events)
}

// finish ends the current stream and releases its context.
func (v *View) finish(state status.State) {
	v.streaming = false
	v.events = nil
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.statusbar.SetState(state)
	v.refresh()
}

func (v *View) current() *Exchange {
	if len(v.exchanges) == 0 {
		return nil
	}
	return v.exchanges[len(v.exchanges)-1]
}

// refresh re-renders the transcript, following the tail when at the bottom.
func (v *View) refresh() {
	atBottom := v.viewport.AtBottom()
	v.viewport.SetContent(v.renderTranscript())
	if atBottom || v.streaming {
		v.viewport.GotoBottom()
	}
}

func (v *View) renderTranscript() string {
	if len(v.exchanges) == 0 {
		return v.styles.Muted.Render("Ask a question about your indexed compliance documents.")
	}

	answerStyle := v.styles.Answer.Width(v.width - 2)
	blocks := make([]string, 0, len(v.exchanges))

	for i, ex := range v.exchanges {
		lines := []string{v.styles.Question.Render("You: ") + v.styles.Normal.Render(ex.Question)}

		if ex.HasSources {
			lines = append(lines, v.sources.Render(ex.Sources, ex.Confidence))
		}

		switch {
		case ex.Answer != "":
			lines = append(lines, answerStyle.Render(ex.Answer))
		case !ex.Done && i == len(v.exchanges)-1:
			lines = append(lines, "  "+v.spinner.View()+v.styles.Muted.Render(" searching documents"))
		}

		if ex.Err != "" {
			lines = append(lines, v.styles.Error.Render("  "+ex.Err))
		}
		if ex.Cancelled {
			lines = append(lines, v.styles.Muted.Render("  (stopped)"))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return strings.Join(blocks, "\n\n")
}

// View renders the chat view.
func (v *View) View() string {
	header := v.styles.Title.Render("complyqa") + v.styles.Muted.Render("  compliance Q&A")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		v.viewport.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height

	vpHeight := height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	v.viewport.Width = width
	v.viewport.Height = vpHeight
	v.input.SetWidth(width)
	v.sources.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Exchanges returns the transcript.
func (v *View) Exchanges() []*Exchange {
	return v.exchanges
}

// Streaming returns whether an answer is in progress.
func (v *View) Streaming() bool {
	return v.streaming
}

// Input returns the question input component.
func (v *View) Input() *input.QuestionInput {
	return v.input
}

// Status returns the status bar component.
func (v *View) Status() *status.Bar {
	return v.statusbar
}

func startAnswer(
	ctx context.Context, svc driving.AnswerService, question string, opts domain.AnswerOptions,
) tea.Cmd {
	return func() tea.Msg {
		events, err := svc.AnswerStream(ctx, question, opts)
		return messages.AnswerStarted{Question: question, Events: events, Err: err}
	}
}

func waitForEvent(events <-chan domain.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.StreamClosed{}
		}
		return messages.ProgressReceived{Event: ev}
	}
}
