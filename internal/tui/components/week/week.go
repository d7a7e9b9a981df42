package week

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/constants"
)

var (
	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(16)

	workedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Width(8)

	breakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Width(8)

	overtimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	undertimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)
)

type Model struct {
	viewport viewport.Model
	Week     *aggregate.Week
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Week == nil {
		return "No data for this week."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

func (m *Model) SetWeek(w aggregate.Week) {
	m.Week = &w
	m.Render()
}

func (m *Model) Render() {
	if m.Week == nil {
		m.viewport.SetContent("No data for this week.")
		return
	}

	var b strings.Builder
	for _, day := range m.Week.Days {
		label := day.Date.Format("Mon " + constants.DateFormat)
		if day.InProgress {
			label += "*"
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			dateStyle.Render(label),
			workedStyle.Render(aggregate.FormatDuration(day.WorkedSeconds)),
			breakStyle.Render(aggregate.FormatDuration(day.BreakSeconds)),
		))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s of %s\n",
		dateStyle.Render("Total"),
		workedStyle.Render(aggregate.FormatDuration(m.Week.WorkedSeconds)),
		aggregate.FormatDuration(m.Week.TargetSeconds),
	))
	style := overtimeStyle
	if m.Week.OvertimeSeconds < 0 {
		style = undertimeStyle
	}
	b.WriteString(fmt.Sprintf("%s %s\n", dateStyle.Render("Overtime"), style.Render(aggregate.FormatSigned(m.Week.OvertimeSeconds))))
	m.viewport.SetContent(b.String())
}
