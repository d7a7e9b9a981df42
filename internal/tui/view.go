package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.state == StateStartForm || m.state == StateBreakForm {
		return docStyle.Render(m.form.View())
	}

	var renderedTabs []string
	for _, t := range tabs {
		style := inactiveTabStyle
		if t == m.state {
			style = activeTabStyle
		}
		renderedTabs = append(renderedTabs, style.Render(t.Title()))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)

	var content string
	switch m.state {
	case StateNow:
		content = m.nowModel.View()
	case StateWeek:
		content = m.weekModel.View()
	case StateEntries:
		content = m.entriesModel.View()
	}

	status := ""
	if m.err != "" {
		status = errorStyle.Render("✗ " + m.err)
	} else if m.message != "" {
		status = messageStyle.Render(m.message)
	}

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		row,
		content,
		status,
		m.help.View(m),
	))
}

func formatWorked(e models.TimeEntry) string {
	worked, _ := aggregate.EntrySeconds(e, aggregate.Options{})
	return aggregate.FormatDuration(worked)
}
