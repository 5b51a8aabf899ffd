package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/typeshape/pretty"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserState int

const (
	stateSelectType browserState = iota
	stateBrowse
	stateInput
)

// tab selects what the browse view shows for the current type.
type tab int

const (
	tabShape tab = iota
	tabSample
	tabJSON
	tabDecoded
)

var tabNames = [...]string{"shape", "sample", "json", "decoded"}

type browserModel struct {
	err      error
	names    []string
	input    textinput.Model
	view     viewport.Model
	decoded  string
	selected int
	tab      tab
	state    browserState
}

func newBrowserModel() *browserModel {
	ti := textinput.New()
	ti.Prompt = "json> "
	ti.Placeholder = `{"name": "edge"}`
	ti.Width = 60
	return &browserModel{
		names: catalogNames(),
		input: ti,
		view:  viewport.New(80, 20),
		state: stateSelectType,
	}
}

func runInteractive() error {
	_, err := tea.NewProgram(newBrowserModel(), tea.WithAltScreen()).Run()
	return err
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) current() entry {
	return catalog[m.names[m.selected]]
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-6, 3)
		m.refresh()

	case tea.KeyMsg:
		if m.state == stateInput {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectType && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectType && m.selected < len(m.names)-1 {
				m.selected++
			}

		case "enter":
			if m.state == stateSelectType {
				m.state = stateBrowse
				m.tab = tabShape
				m.decoded = ""
				m.refresh()
				return m, nil
			}

		case "tab":
			if m.state == stateBrowse {
				m.tab = (m.tab + 1) % tab(len(tabNames))
				m.refresh()
				return m, nil
			}

		case "e":
			if m.state == stateBrowse {
				m.state = stateInput
				m.err = nil
				return m, m.input.Focus()
			}

		case "esc":
			if m.state == stateBrowse {
				m.state = stateSelectType
				return m, nil
			}
		}
	}

	if m.state == stateBrowse {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *browserModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.input.Blur()
		m.state = stateBrowse
		return m, nil
	case "enter":
		m.input.Blur()
		m.state = stateBrowse
		m.decodeInput()
		m.tab = tabDecoded
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// decodeInput builds a value of the current type from the JSON typed by
// the user and renders it.
func (m *browserModel) decodeInput() {
	data := []byte(m.input.Value())
	out, err := transcode(m.current().shape, data, "json", "pretty", &pretty.Config{Color: true})
	if err != nil {
		m.err = err
		m.decoded = ""
		return
	}
	m.err = nil
	m.decoded = strings.TrimSuffix(string(out), "\n")
}

// refresh renders the active tab into the viewport.
func (m *browserModel) refresh() {
	if m.state == stateSelectType {
		return
	}
	e := m.current()
	var content string
	switch m.tab {
	case tabShape:
		content = describe(e.shape, true)
	case tabSample:
		content = (&pretty.Config{Color: true}).Sprint(e.sample())
	case tabJSON:
		data, err := jsonConfig.Marshal(e.sample())
		if err != nil {
			content = errorStyle.Render(fmt.Sprintf("Error: %v", err))
		} else {
			content = string(data)
		}
	case tabDecoded:
		switch {
		case m.err != nil:
			content = errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
		case m.decoded == "":
			content = helpStyle.Render("press e to enter JSON for " + e.name)
		default:
			content = m.decoded
		}
	}
	m.view.SetContent(content)
	m.view.GotoTop()
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Shape Browser"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType:
		b.WriteString("Select a type:\n\n")
		for i, name := range m.names {
			line := fmt.Sprintf("%-10s %s", name, catalog[name].doc)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter browse • q quit"))

	case stateBrowse, stateInput:
		e := m.current()
		b.WriteString(typeStyle.Render(e.shape.Name()))
		b.WriteString("  ")
		for i, name := range tabNames {
			if tab(i) == m.tab {
				b.WriteString(selectedStyle.Render(" " + name + " "))
			} else {
				b.WriteString(" " + name + " ")
			}
		}
		b.WriteString("\n")
		b.WriteString(m.view.View())
		b.WriteString("\n")
		if m.state == stateInput {
			b.WriteString(m.input.View())
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("enter decode • esc cancel"))
		} else {
			b.WriteString(helpStyle.Render("tab switch view • ↑/↓ scroll • e enter JSON • esc back • q quit"))
		}
	}

	return b.String()
}
