package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestUpdateAppliesSnapshotAndRenders(t *testing.T) {
	t.Parallel()
	updates := make(chan Snapshot, 1)
	m := New(updates)

	snap := Snapshot{
		RoundNum:      12,
		Street:        "flop",
		NonZero:       500,
		Unique:        3,
		NumParticles:  1000,
		Equity:        0.64,
		LastAction:    "raise 40",
		LastStrategy:  []float64{0.1, 0.2, 0.7},
		ShowdownsSeen: 2,
	}

	updated, cmd := m.Update(snapshotMsg(snap))
	require.NotNil(t, cmd)
	model := updated.(*Model)
	require.Equal(t, snap, model.latest)

	view := model.View()
	require.Contains(t, view, "round")
	require.Contains(t, view, "12")
	require.Contains(t, view, "flop")
	require.Contains(t, view, "0.10, 0.20, 0.70")
}

func TestUpdateQuitsOnKey(t *testing.T) {
	t.Parallel()
	m := New(make(chan Snapshot))
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	model := updated.(*Model)
	require.True(t, model.quitting)
	require.Equal(t, "", model.View())
}

func TestWaitForSnapshotReturnsQuitOnClose(t *testing.T) {
	t.Parallel()
	updates := make(chan Snapshot)
	m := New(updates)
	close(updates)

	msg := m.waitForSnapshot()()
	_, isQuit := msg.(tea.QuitMsg)
	require.True(t, isQuit)
}

func TestViewRendersEmptyStrategyList(t *testing.T) {
	t.Parallel()
	m := New(make(chan Snapshot))
	view := m.View()
	require.True(t, strings.Contains(view, "last strategy"))
}
