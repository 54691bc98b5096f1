// Package tui is a live, read-only dashboard for cmd/agent: round number,
// the particle filter's NonZero/Unique counts, the cached per-street equity,
// and the last sampled strategy vector, refreshed as the protocol runner
// pushes snapshots down a channel.
//
// Adapted from a Bubble Tea model/style shape (Init/Update/View, a
// styles.go of named lipgloss colors) built for an interactive input
// pane; this dashboard drops the input pane entirely since the agent
// itself drives every decision and there is nothing for a human to type.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Snapshot is one state update the protocol runner pushes to the dashboard
// after every decision.
type Snapshot struct {
	RoundNum      int
	Street        string
	NonZero       int
	Unique        int
	NumParticles  int
	Equity        float64
	LastAction    string
	LastStrategy  []float64
	ShowdownsSeen int
}

// Model is the Bubble Tea model driving the dashboard.
type Model struct {
	updates  <-chan Snapshot
	latest   Snapshot
	spin     spinner.Model
	seen     bool
	quitting bool
}

// New builds a Model that reads snapshots off updates until the channel
// closes or the user quits.
func New(updates <-chan Snapshot) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return &Model{updates: updates, spin: sp}
}

type snapshotMsg Snapshot

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.updates
		if !ok {
			return tea.Quit()
		}
		return snapshotMsg(snap)
	}
}

// Init starts the first wait for a snapshot alongside the spinner tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForSnapshot())
}

// Update handles incoming snapshots, spinner ticks, and quit keys.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case snapshotMsg:
		m.latest = Snapshot(msg)
		m.seen = true
		return m, m.waitForSnapshot()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#96CEB4")).Bold(true)
)

// View renders the current snapshot.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.latest

	var strat strings.Builder
	for i, p := range s.LastStrategy {
		if i > 0 {
			strat.WriteString(", ")
		}
		fmt.Fprintf(&strat, "%.2f", p)
	}

	row := func(label string, value any) string {
		return labelStyle.Render(label+": ") + valueStyle.Render(fmt.Sprintf("%v", value)) + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(" rankshift agent ") + "\n\n")
	if !m.seen {
		b.WriteString(m.spin.View() + labelStyle.Render(" waiting for the first decision") + "\n\n")
	}
	b.WriteString(row("round", s.RoundNum))
	b.WriteString(row("street", s.Street))
	b.WriteString(row("particles (nonzero/unique/total)", fmt.Sprintf("%d/%d/%d", s.NonZero, s.Unique, s.NumParticles)))
	b.WriteString(row("equity", fmt.Sprintf("%.3f", s.Equity)))
	b.WriteString(row("last action", s.LastAction))
	b.WriteString(row("last strategy", "["+strat.String()+"]"))
	b.WriteString(row("showdowns seen", s.ShowdownsSeen))
	b.WriteString("\n" + labelStyle.Render("(q to quit)"))
	return b.String()
}
