package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/haptix-works/owt"
	"github.com/haptix-works/owt/ffdevice"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

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
	stateSelectAction modelState = iota
	stateInputArgs
	stateShowResult
)

type action struct {
	name   string
	fields []string
	run    func(m *interactiveModel, vals []string) (string, error)
}

// actions is the workbench menu. Each entry names the text inputs it needs
// and performs the device call when they are filled in.
var actions = []action{
	{
		name:   "upload waveform",
		fields: []string{"waveform string"},
		run: func(m *interactiveModel, vals []string) (string, error) {
			data, err := owt.Compile(vals[0])
			if err != nil {
				return "", err
			}
			id, err := m.dev.UploadCustom(data, 0, ffdevice.NewEffect)
			if err != nil {
				return "", err
			}
			m.effects = append(m.effects, id)
			return fmt.Sprintf("effect %d uploaded, %d bytes", id, len(data)), nil
		},
	},
	{
		name:   "compile only",
		fields: []string{"waveform string"},
		run: func(m *interactiveModel, vals []string) (string, error) {
			data, err := owt.Compile(vals[0])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d bytes packed\n\n%s", len(data), hex.Dump(data)), nil
		},
	},
	{
		name:   "trigger effect",
		fields: []string{"effect id"},
		run: func(m *interactiveModel, vals []string) (string, error) {
			id, err := parseEffectID(vals[0])
			if err != nil {
				return "", err
			}
			if err := m.dev.Trigger(id, true); err != nil {
				return "", err
			}
			return fmt.Sprintf("effect %d playing", id), nil
		},
	},
	{
		name:   "stop effect",
		fields: []string{"effect id"},
		run: func(m *interactiveModel, vals []string) (string, error) {
			id, err := parseEffectID(vals[0])
			if err != nil {
				return "", err
			}
			if err := m.dev.Trigger(id, false); err != nil {
				return "", err
			}
			return fmt.Sprintf("effect %d stopped", id), nil
		},
	},
	{
		name:   "erase effect",
		fields: []string{"effect id"},
		run: func(m *interactiveModel, vals []string) (string, error) {
			id, err := parseEffectID(vals[0])
			if err != nil {
				return "", err
			}
			if err := m.dev.Erase(id); err != nil {
				return "", err
			}
			for i, e := range m.effects {
				if e == id {
					m.effects = append(m.effects[:i], m.effects[i+1:]...)
					break
				}
			}
			return fmt.Sprintf("effect %d erased", id), nil
		},
	},
	{
		name:   "buzz",
		fields: []string{"period ms (1-100)", "magnitude (0-255)"},
		run: func(m *interactiveModel, vals []string) (string, error) {
			period, err := strconv.Atoi(strings.TrimSpace(vals[0]))
			if err != nil || period < 1 || period > 100 {
				return "", fmt.Errorf("period must be 1-100 ms")
			}
			magnitude, err := strconv.Atoi(strings.TrimSpace(vals[1]))
			if err != nil || magnitude < 0 || magnitude > 255 {
				return "", fmt.Errorf("magnitude must be 0-255")
			}
			id, err := m.dev.UploadSine(uint16(period), uint8(magnitude), 0, ffdevice.NewEffect)
			if err != nil {
				return "", err
			}
			m.effects = append(m.effects, id)
			if err := m.dev.Trigger(id, true); err != nil {
				return "", err
			}
			return fmt.Sprintf("effect %d buzzing", id), nil
		},
	},
	{
		name:   "set gain",
		fields: []string{"gain percent (0-100)"},
		run: func(m *interactiveModel, vals []string) (string, error) {
			pct, err := strconv.Atoi(strings.TrimSpace(vals[0]))
			if err != nil {
				return "", fmt.Errorf("gain must be a number")
			}
			if err := m.dev.SetGain(pct); err != nil {
				return "", err
			}
			return fmt.Sprintf("gain set to %d%%", pct), nil
		},
	},
}

func parseEffectID(s string) (int16, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("effect id must be a non-negative number")
	}
	return int16(id), nil
}

type interactiveModel struct {
	err      error
	dev      *ffdevice.Device
	path     string
	result   string
	effects  []int16
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

func newInteractiveModel(path string) *interactiveModel {
	return &interactiveModel{
		path:  path,
		state: stateSelectAction,
	}
}

type openedMsg struct {
	err error
	dev *ffdevice.Device
}

type actionResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.openDevice
}

func (m *interactiveModel) openDevice() tea.Msg {
	dev, err := ffdevice.Open(m.path)
	if err != nil {
		return openedMsg{err: err}
	}
	return openedMsg{dev: dev}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.dev != nil {
				m.dev.Close()
			}
			return m, tea.Quit

		case "q":
			if m.state == stateInputArgs {
				break
			}
			if m.dev != nil {
				m.dev.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectAction && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectAction && m.selected < len(actions)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectAction:
				m.prepareInputs()
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.runAction

			case stateShowResult:
				m.state = stateSelectAction
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
				m.state = stateSelectAction
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectAction
				m.result = ""
				m.err = nil
			}
		}

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.dev = msg.dev

	case actionResultMsg:
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
	a := actions[m.selected]
	m.inputs = make([]textinput.Model, len(a.fields))
	for i, f := range a.fields {
		ti := textinput.New()
		ti.Prompt = f + ": "
		ti.Width = 60
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) runAction() tea.Msg {
	if m.dev == nil {
		return actionResultMsg{err: fmt.Errorf("device not open")}
	}

	a := actions[m.selected]
	vals := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		vals[i] = input.Value()
	}

	result, err := a.run(m, vals)
	if err != nil {
		return actionResultMsg{err: err}
	}
	return actionResultMsg{result: result}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.dev == nil {
		return "Opening " + m.path + "..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("OWT Workbench"))
	b.WriteString(" ")
	b.WriteString(m.path)
	if len(m.effects) > 0 {
		ids := make([]string, len(m.effects))
		for i, id := range m.effects {
			ids[i] = strconv.Itoa(int(id))
		}
		b.WriteString(helpStyle.Render("  effects: " + strings.Join(ids, ", ")))
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectAction:
		b.WriteString("Select an action:\n\n")
		for i, a := range actions {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + a.name))
			} else {
				b.WriteString(cursor + actionStyle.Render(a.name))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputArgs:
		a := actions[m.selected]
		b.WriteString(actionStyle.Render(a.name))
		b.WriteString("\n\n")
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		a := actions[m.selected]
		b.WriteString(actionStyle.Render(a.name))
		b.WriteString("\n\n")
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

func runInteractive(path string) error {
	p := tea.NewProgram(newInteractiveModel(path), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
