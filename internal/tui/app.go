// Package tui is an interactive terminal chronote.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
	"github.com/aretw0/chronote/pkg/view"
)

const maxNotes = 10

// Chronote is what the model drives. *host.Chronote satisfies it.
type Chronote interface {
	Submit(text string) *eventloop.Promise
	Configure(kind core.StrategyKind, parts int) error
	Kind() core.StrategyKind
	Parts() int
	Notes() []core.Note
}

type eventMsg struct {
	event core.Event
}

type streamClosedMsg struct{}

type savedMsg struct {
	err error
}

// Model is the bubbletea model of the terminal chronote.
type Model struct {
	chronote Chronote
	events   <-chan core.Event
	input    textinput.Model
	status   *view.StatusIndicator
	clock    *view.Clock
	latency  *view.Latency
	trace    *view.TraceViewer
	chart    *view.PerfChart
	width    int
	height   int
	err      error
	quitting bool
}

// NewModel creates the model. The latency meter binds to target; every other
// view is fed from events.
func NewModel(c Chronote, target view.Target, events <-chan core.Event) Model {
	ti := textinput.New()
	ti.Placeholder = "write a note and press enter"
	ti.CharLimit = 280
	ti.Focus()

	latency := view.NewLatency()
	latency.Bind(target)

	return Model{
		chronote: c,
		events:   events,
		input:    ti,
		status:   view.NewStatusIndicator(),
		clock:    view.NewClock(),
		latency:  latency,
		trace:    view.NewTraceViewer(),
		chart:    view.NewPerfChart(),
		width:    100,
		height:   30,
	}
}

// Close releases the latency subscription.
func (m Model) Close() {
	m.latency.Close()
}

// Init starts the cursor blink and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

func waitForEvent(events <-chan core.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: e}
	}
}

func waitForSave(p *eventloop.Promise) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{err: p.Wait(context.Background())}
	}
}

// Update folds events, save results and key presses into the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m.status.Handle(msg.event)
		m.clock.Handle(msg.event)
		m.trace.Handle(msg.event)
		m.chart.Handle(msg.event)
		return m, waitForEvent(m.events)

	case streamClosedMsg:
		return m, nil

	case savedMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		m.err = nil
		return m, waitForSave(m.chronote.Submit(text))

	case "tab":
		m.err = m.chronote.Configure(nextKind(m.chronote.Kind()), max(m.chronote.Parts(), 1))
		return m, nil

	case "ctrl+t":
		m.trace.Toggle()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// nextKind cycles through the strategies in declaration order.
func nextKind(current core.StrategyKind) core.StrategyKind {
	kinds := core.Kinds()
	for i, k := range kinds {
		if k == current {
			return kinds[(i+1)%len(kinds)]
		}
	}
	return kinds[0]
}

// View renders the whole screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	store := string(m.chronote.Kind())
	if store == "" {
		store = "none"
	}
	if m.chronote.Kind() == core.KindSetTimeoutByParts {
		store = fmt.Sprintf("%s (%d parts)", store, m.chronote.Parts())
	}

	statusBox := readyStyle.Render("ready")
	if m.status.Saving() {
		statusBox = savingStyle.Render("saving")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("chronote"),
		clockStyle.Render(m.clock.Render()),
		headerStyle.Render("store: "+store),
		" ",
		statusBox,
		" ",
		latencyStyle.Render(m.latency.Render()),
	))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	notes := m.chronote.Notes()
	if len(notes) == 0 {
		b.WriteString(dimStyle.Render("  no notes yet"))
		b.WriteString("\n")
	}
	for i, n := range notes {
		if i == maxNotes {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(notes)-maxNotes)))
			b.WriteString("\n")
			break
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			timestampStyle.Render(n.Timestamp.Format("15:04:05")),
			noteStyle.Render(n.Text),
		))
		b.WriteString("\n")
	}

	if series := m.chart.Series(); len(series) > 0 {
		b.WriteString("\n")
		for _, s := range series {
			values := make([]string, 0, len(s.Points))
			for _, p := range s.Points {
				values = append(values, fmt.Sprintf("%.0f", p.Y))
			}
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %-30s %s ms", s.Name, strings.Join(values, " "))))
			b.WriteString("\n")
		}
	}

	if !m.trace.Collapsed() {
		b.WriteString("\n")
		body := m.trace.Render()
		if body == "" {
			body = "no trace yet"
		}
		b.WriteString(traceStyle.Width(max(m.width-4, 20)).Render("Trace Viewer\n\n" + body))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: add note • tab: next store • ctrl+t: trace • esc: quit"))
	return b.String()
}
