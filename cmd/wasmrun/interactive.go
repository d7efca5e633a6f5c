package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-interp/engine"
	"github.com/wippyai/wasm-interp/wasm"
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

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type funcInfo struct {
	name string
	typ  wasm.FuncType
}

type interactiveModel struct {
	err      error
	module   *wasm.Module
	filename string
	result   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type callResultMsg struct {
	err    error
	result string
}

func runInteractive(filename string, m *wasm.Module) error {
	model := &interactiveModel{
		filename: filename,
		module:   m,
		state:    stateSelectFunc,
	}
	for _, exp := range m.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		model.funcs = append(model.funcs, funcInfo{
			name: exp.Name,
			typ:  m.FuncTypeAt(exp.Index),
		})
	}
	_, err := tea.NewProgram(model).Run()
	return err
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state == stateSelectFunc {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
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
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
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
	fn := m.funcs[m.selected]
	m.inputs = nil
	m.focusIdx = 0
	for i, p := range fn.typ.Params {
		ti := textinput.New()
		ti.Placeholder = p.String()
		ti.Prompt = fmt.Sprintf("arg%d (%s): ", i, p)
		ti.CharLimit = 64
		if i == 0 {
			ti.Focus()
		}
		m.inputs = append(m.inputs, ti)
	}
}

// callFunction runs the selected export on a fresh engine instance so a
// trap cannot poison later calls.
func (m *interactiveModel) callFunction() tea.Msg {
	fn := m.funcs[m.selected]

	args := make([]uint64, len(fn.typ.Params))
	for i, p := range fn.typ.Params {
		raw, err := parseArg(strings.TrimSpace(m.inputs[i].Value()), p)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("arg%d: %w", i, err)}
		}
		args[i] = raw
	}

	vm, err := engine.New(m.module)
	if err != nil {
		return callResultMsg{err: err}
	}
	results, err := vm.Call(context.Background(), fn.name, args...)
	if err != nil {
		return callResultMsg{err: err}
	}

	if len(results) == 0 {
		return callResultMsg{result: "(no results)"}
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = formatResult(r, fn.typ.Results[i])
	}
	return callResultMsg{result: strings.Join(parts, ", ")}
}

func parseArg(s string, t wasm.ValType) (uint64, error) {
	switch t {
	case wasm.ValI32:
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return 0, err
		}
		return uint64(uint32(int32(v))), nil
	case wasm.ValI64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	case wasm.ValF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, err
		}
		return uint64(math.Float32bits(float32(v))), nil
	case wasm.ValF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return math.Float64bits(v), nil
	}
	return 0, fmt.Errorf("unsupported parameter type %s", t)
}

func formatResult(raw uint64, t wasm.ValType) string {
	switch t {
	case wasm.ValI32:
		return fmt.Sprintf("%d", int32(uint32(raw)))
	case wasm.ValI64:
		return fmt.Sprintf("%d", int64(raw))
	case wasm.ValF32:
		return fmt.Sprintf("%g", math.Float32frombits(uint32(raw)))
	case wasm.ValF64:
		return fmt.Sprintf("%g", math.Float64frombits(raw))
	}
	return fmt.Sprintf("0x%016x", raw)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wasmrun — " + m.filename))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.funcs) == 0 {
			b.WriteString(errorStyle.Render("module exports no functions"))
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("q: quit"))
			return b.String()
		}
		b.WriteString("Exported functions:\n\n")
		for i, fn := range m.funcs {
			line := fmt.Sprintf("  %s %s", funcStyle.Render(fn.name), typeStyle.Render(fn.typ.String()))
			if i == m.selected {
				line = selectedStyle.Render("> " + fn.name + " " + fn.typ.String())
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓: select  enter: call  q: quit"))

	case stateInputArgs:
		fn := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s %s\n\n", funcStyle.Render(fn.name), typeStyle.Render(fn.typ.String())))
		for i := range m.inputs {
			b.WriteString(m.inputs[i].View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab: next field  enter: call  esc: back"))

	case stateShowResult:
		fn := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("%s %s\n\n", funcStyle.Render(fn.name), typeStyle.Render(fn.typ.String())))
		if m.err != nil {
			b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		} else {
			b.WriteString(resultStyle.Render("result: " + m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter/esc: back"))
	}

	return b.String()
}
