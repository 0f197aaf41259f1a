package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"resolvd/internal/resolver"
)

// maxVisibleOutcomes bounds the scrollback kept on screen.
const maxVisibleOutcomes = 12

type eventMsg resolver.Event

type streamClosedMsg struct{}

// Model represents the TUI application state for a streaming resolution run.
type Model struct {
	ctx     context.Context
	engine  *resolver.Engine
	queries []resolver.Query
	opts    resolver.Opts

	events    <-chan resolver.Event
	spinner   spinner.Model
	bar       progress.Model
	outcomes  []string
	completed int
	matched   int
	matchRate float64
	done      bool
	err       error
	width     int
	height    int
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model for the given batch.
func NewModel(ctx context.Context, engine *resolver.Engine, queries []resolver.Query, opts resolver.Opts) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return &Model{
		ctx:     ctx,
		engine:  engine,
		queries: queries,
		opts:    opts,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the resolution stream and the spinner.
func (m *Model) Init() tea.Cmd {
	m.events = m.engine.ResolveStream(m.ctx, m.queries, m.opts)
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		return m.handleEvent(resolver.Event(msg))

	case streamClosedMsg:
		m.done = true
		return m, nil
	}

	return m, nil
}

func (m *Model) handleEvent(ev resolver.Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case resolver.EventResult:
		m.completed++
		if ev.Result.Matched() {
			m.matched++
		}
		m.outcomes = append(m.outcomes, m.formatOutcome(*ev.Result))
		if len(m.outcomes) > maxVisibleOutcomes {
			m.outcomes = m.outcomes[len(m.outcomes)-maxVisibleOutcomes:]
		}
		return m, m.waitForEvent()

	case resolver.EventComplete:
		m.done = true
		m.matchRate = ev.MatchRate
		return m, m.waitForEvent()

	case resolver.EventError:
		m.done = true
		m.err = ev.Err
		return m, m.waitForEvent()
	}

	return m, m.waitForEvent()
}

// View renders the run: header, progress bar, recent outcomes, summary.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Resolving Tracks"))
	b.WriteString("\n")

	if m.done {
		if m.err != nil {
			b.WriteString(styles.err.Render(fmt.Sprintf("✗ Resolution failed: %v", m.err)))
		} else {
			b.WriteString(styles.ok.Render(fmt.Sprintf("✓ Resolved %d of %d tracks (%.1f%%)", m.matched, len(m.queries), m.matchRate)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(fmt.Sprintf("%s Resolving %d/%d...\n", m.spinner.View(), m.completed, len(m.queries)))
	}

	if len(m.queries) > 0 {
		b.WriteString(m.bar.ViewAs(float64(m.completed) / float64(len(m.queries))))
		b.WriteString("\n\n")
	}

	for _, line := range m.outcomes {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) formatOutcome(res resolver.MatchResult) string {
	if res.Track != nil {
		return fmt.Sprintf("%s %s - %s → %s", styles.ok.Render("✓"), res.Query.Artist, res.Query.Title, res.Track.Name)
	}
	return fmt.Sprintf("%s %s - %s", styles.warn.Render("?"), res.Query.Artist, res.Query.Title)
}

// waitForEvent pumps the next resolution event into the update loop.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Run launches the TUI and blocks until the user quits. The error from an
// aborted run is returned after the program exits.
func Run(ctx context.Context, engine *resolver.Engine, queries []resolver.Query, opts resolver.Opts) error {
	model := NewModel(ctx, engine, queries, opts)

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	if m, ok := final.(*Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
