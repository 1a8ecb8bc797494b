package cli

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/irflow/internal/catalog"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *browseModel, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(key(k))
	}
	return cmd
}

func selectEntry(t *testing.T, m *browseModel, name string) {
	t.Helper()
	for m.entries[m.selected].Name() != name {
		require.Less(t, m.selected, len(m.entries)-1, "entry %s not found", name)
		press(m, "down")
	}
}

func TestBrowse_RunWithArgs(t *testing.T) {
	m := newBrowseModel(context.Background(), catalog.All(), false)
	selectEntry(t, m, "quotient")

	press(m, "enter")
	require.Equal(t, stateInputArgs, m.state)
	require.Len(t, m.inputs, 2)

	press(m, "9", "tab", "4")
	cmd := press(m, "enter")
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, stateShowResult, m.state)
	assert.NoError(t, m.err)
	assert.Equal(t, "2", m.result)
	assert.Contains(t, m.View(), "Result of")

	press(m, "enter")
	assert.Equal(t, stateSelect, m.state)
	assert.Nil(t, m.inputs)
}

func TestBrowse_BadArgument(t *testing.T) {
	m := newBrowseModel(context.Background(), catalog.All(), false)
	selectEntry(t, m, "sum")

	press(m, "enter", "x")
	m.Update(press(m, "enter")())

	assert.Equal(t, stateShowResult, m.state)
	assert.Error(t, m.err)
}

func TestBrowse_ShowIR(t *testing.T) {
	m := newBrowseModel(context.Background(), catalog.All(), true)
	selectEntry(t, m, "ticks")

	press(m, "i")
	require.Equal(t, stateShowIR, m.state)
	assert.Contains(t, m.View(), "(lowered)")

	press(m, "d")
	assert.True(t, m.draft)
	assert.Contains(t, m.View(), "(draft)")

	press(m, "esc")
	assert.Equal(t, stateSelect, m.state)
}

func TestBrowse_Quit(t *testing.T) {
	m := newBrowseModel(context.Background(), catalog.All(), false)
	cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
