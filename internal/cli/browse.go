package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/irflow/internal/catalog"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "browse",
		Short:         "Pick, inspect and run procedures interactively",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(cmd) {
				return WrapExitError(ExitCommandError, "browse", fmt.Errorf("stdout is not a terminal"))
			}
			p := tea.NewProgram(newBrowseModel(cmd.Context(), catalog.All(), rootOpts.Pooled), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type modelState int

const (
	stateSelect modelState = iota
	stateInputArgs
	stateShowResult
	stateShowIR
)

type browseModel struct {
	ctx      context.Context
	err      error
	result   string
	entries  []catalog.Entry
	inputs   []textinput.Model
	ir       viewport.Model
	draft    bool
	pooled   bool
	selected int
	focusIdx int
	state    modelState
}

type callResultMsg struct {
	err    error
	result string
}

func newBrowseModel(ctx context.Context, entries []catalog.Entry, pooled bool) *browseModel {
	if ctx == nil {
		ctx = context.Background()
	}
	return &browseModel{
		ctx:     ctx,
		entries: entries,
		pooled:  pooled,
		ir:      viewport.New(80, 20),
		state:   stateSelect,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ir.Width = msg.Width
		m.ir.Height = max(msg.Height-6, 3)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "i":
			if m.state == stateSelect && len(m.entries) > 0 {
				m.draft = false
				m.showIR()
				return m, nil
			}

		case "d":
			if m.state == stateShowIR {
				m.draft = !m.draft
				m.showIR()
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelect:
				if len(m.entries) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callProcedure()
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callProcedure()

			case stateShowResult, stateShowIR:
				m.back()
				return m, nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			if m.state != stateSelect {
				m.back()
				return m, nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	switch m.state {
	case stateInputArgs:
		cmds := make([]tea.Cmd, len(m.inputs))
		for i := range m.inputs {
			m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
		}
		return m, tea.Batch(cmds...)
	case stateShowIR:
		var cmd tea.Cmd
		m.ir, cmd = m.ir.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *browseModel) back() {
	m.state = stateSelect
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *browseModel) showIR() {
	text, err := dumpEntry(m.entries[m.selected], m.draft)
	if err != nil {
		text = errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}
	m.ir.SetContent(text)
	m.ir.GotoTop()
	m.state = stateShowIR
}

func (m *browseModel) prepareInputs() {
	e := m.entries[m.selected]
	m.inputs = make([]textinput.Model, len(e.Signature.Params))
	for i, p := range e.Signature.Params {
		ti := textinput.New()
		ti.Placeholder = p.Type.String()
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// callProcedure snapshots the selection and inputs; the returned command runs
// off the update loop.
func (m *browseModel) callProcedure() tea.Cmd {
	e := m.entries[m.selected]
	raw := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		raw[i] = strings.TrimSpace(input.Value())
	}
	ctx, pooled := m.ctx, m.pooled
	return func() tea.Msg {
		v, err := call(ctx, e, raw, pooled)
		if err != nil {
			return callResultMsg{err: err}
		}
		return callResultMsg{result: fmt.Sprintf("%v", v)}
	}
}

func (m *browseModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("irflow"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString("No procedures.\n")
		return b.String()
	}

	switch m.state {
	case stateSelect:
		b.WriteString("Select a procedure:\n\n")
		for i, e := range m.entries {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + signature(e)))
			} else {
				b.WriteString("  " + m.formatEntry(e))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • i show IR • q quit"))

	case stateInputArgs:
		e := m.entries[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(e.Name())))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(e.Signature.Params[i].Type.String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		e := m.entries[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(e.Name())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))

	case stateShowIR:
		e := m.entries[m.selected]
		view := "lowered"
		if m.draft || !e.Signature.Async {
			view = "draft"
		}
		b.WriteString(fmt.Sprintf("IR of %s (%s)\n\n", funcStyle.Render(e.Name()), view))
		b.WriteString(m.ir.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • d toggle lowering • esc back"))
	}

	return b.String()
}

func (m *browseModel) formatEntry(e catalog.Entry) string {
	var params []string
	for _, p := range e.Signature.Params {
		params = append(params, p.Name+": "+typeStyle.Render(p.Type.String()))
	}
	s := funcStyle.Render(e.Name()) + "(" + strings.Join(params, ", ") + ") -> " + typeStyle.Render(e.Signature.Result.String())
	if e.Signature.Async {
		s += " async"
	}
	return s
}
