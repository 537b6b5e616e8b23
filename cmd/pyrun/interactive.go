package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/epilys/pyo3"
	"github.com/epilys/pyo3/convert"
	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/object"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
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

type opInfo struct {
	name   string
	params []string
}

var ops = []opInfo{
	{name: "set", params: []string{"key", "value"}},
	{name: "get", params: []string{"key"}},
	{name: "del", params: []string{"key"}},
	{name: "contains", params: []string{"key"}},
	{name: "items", params: nil},
	{name: "len", params: nil},
	{name: "clear", params: nil},
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	vm       backend
	dict     object.Dict
	name     string
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

func newInteractiveModel(vm backend, name string) (*interactiveModel, error) {
	m := &interactiveModel{vm: vm, name: name, state: stateSelectOp}
	err := gil.With(vm, func(py *gil.Token) error {
		dict, err := object.NewDict(py)
		if err != nil {
			return err
		}
		m.dict = dict
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

type opResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.runOp
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.runOp

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case opResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	op := ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Placeholder = "int, or 'text' for a string"
		ti.Prompt = p + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// parseArg reads an integer, a quoted string, or true/false.
func parseArg(s string) any {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return strings.Trim(s, "'\"")
}

func (m *interactiveModel) runOp() tea.Msg {
	op := ops[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = parseArg(input.Value())
	}

	var result string
	err := gil.With(m.vm, func(py *gil.Token) error {
		switch op.name {
		case "set":
			key, err := convert.ToObject(py, args[0])
			if err != nil {
				return err
			}
			defer key.Drop()
			value, err := convert.ToObject(py, args[1])
			if err != nil {
				return err
			}
			defer value.Drop()
			if err := m.dict.SetItem(py, key, value); err != nil {
				return err
			}
			result = "ok"

		case "get":
			key, err := convert.ToObject(py, args[0])
			if err != nil {
				return err
			}
			defer key.Drop()
			value, ok := m.dict.GetItem(py, key)
			if !ok {
				result = "absent"
				return nil
			}
			defer value.Drop()
			result = renderObject(py, value)

		case "del":
			key, err := convert.ToObject(py, args[0])
			if err != nil {
				return err
			}
			defer key.Drop()
			if err := m.dict.DelItem(py, key); err != nil {
				return err
			}
			result = "ok"

		case "contains":
			key, err := convert.ToObject(py, args[0])
			if err != nil {
				return err
			}
			defer key.Drop()
			ok, err := m.dict.Contains(py, key)
			if err != nil {
				return err
			}
			result = fmt.Sprintf("%v", ok)

		case "items":
			var parts []string
			for _, item := range m.dict.Items(py) {
				parts = append(parts, fmt.Sprintf("%s: %s",
					renderObject(py, item.Key), renderObject(py, item.Value)))
				item.Key.Drop()
				item.Value.Drop()
			}
			result = "{" + strings.Join(parts, ", ") + "}"

		case "len":
			result = strconv.Itoa(m.dict.Len(py))

		case "clear":
			m.dict.Clear(py)
			result = "ok"
		}
		return nil
	})

	return opResultMsg{err: err, result: result}
}

// renderObject formats an object by its kind, falling back to the kind name.
func renderObject(py *gil.Token, obj *object.Object) string {
	switch obj.KindName(py) {
	case "bool":
		b, err := convert.Extract[bool](py, obj)
		if err == nil {
			return fmt.Sprintf("%v", b)
		}
	case "int":
		n, err := convert.Extract[int64](py, obj)
		if err == nil {
			return strconv.FormatInt(n, 10)
		}
	case "str":
		s, err := convert.Extract[string](py, obj)
		if err == nil {
			return fmt.Sprintf("%q", s)
		}
	}
	return "<" + obj.KindName(py) + ">"
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("pyo3 heap inspector"))
	b.WriteString(" backend: " + m.name)
	b.WriteString("\n\n")

	b.WriteString("Live objects:\n")
	rows := 0
	m.vm.Each(func(addr pyo3.Addr, kind string, refcnt int64) bool {
		if rows >= 12 {
			b.WriteString("  ...\n")
			return false
		}
		b.WriteString(fmt.Sprintf("  %4d  %-5s refs=%d\n", addr, kindStyle.Render(kind), refcnt))
		rows++
		return true
	})
	b.WriteString(fmt.Sprintf("  total: %d\n\n", m.vm.Len()))

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select a mapping operation:\n\n")
		for i, op := range ops {
			cursor := "  "
			line := formatOp(op)
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + line))
			} else {
				b.WriteString(cursor + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputArgs:
		op := ops[m.selected]
		b.WriteString(fmt.Sprintf("Running %s\n\n", opStyle.Render(op.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		op := ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatOp(op opInfo) string {
	return opStyle.Render(op.name) + "(" + strings.Join(op.params, ", ") + ")"
}

func runInteractive(vm backend, name string) error {
	m, err := newInteractiveModel(vm, name)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
