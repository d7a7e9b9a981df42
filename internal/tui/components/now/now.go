package now

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(1, 2).
			Align(lipgloss.Center)

	clockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Padding(1, 0).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Width(40).
			Align(lipgloss.Center)

	pausedClockStyle = clockStyle.
				BorderForeground(lipgloss.Color("214"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)

	breakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// Snapshot is everything the now view shows for one frame
type Snapshot struct {
	Now            time.Time
	State          session.State
	Entry          *models.TimeEntry
	Elapsed        time.Duration
	BreakEnd       *time.Time
	BreakRemaining int64
	Day            aggregate.Day
	Bar            string
}

type Model struct {
	snap   Snapshot
	width  int
	height int
}

func New() Model {
	return Model{}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) SetSnapshot(s Snapshot) {
	m.snap = s
}

func (m Model) Snapshot() Snapshot {
	return m.snap
}

func (m Model) View() string {
	s := m.snap
	title := titleStyle.Render(fmt.Sprintf("Now: %02d:%02d", s.Now.Hour(), s.Now.Minute()))

	var body string
	switch s.State {
	case session.Idle:
		body = mutedStyle.Render("Not tracking. Press 's' to start.")
	default:
		style := clockStyle
		if s.State == session.Paused {
			style = pausedClockStyle
		}
		lines := []string{style.Render(aggregate.FormatClock(int64(s.Elapsed / time.Second)))}
		if s.Entry != nil {
			lines = append(lines, mutedStyle.Render(describe(*s.Entry)))
		}
		lines = append(lines, mutedStyle.Render(s.State.String()))
		if s.BreakEnd != nil {
			lines = append(lines, breakStyle.Render(fmt.Sprintf("Break until %s (%s left)",
				s.BreakEnd.Format("15:04"), aggregate.FormatClock(s.BreakRemaining))))
		}
		body = lipgloss.JoinVertical(lipgloss.Center, lines...)
	}

	today := mutedStyle.Render(fmt.Sprintf("Today: %s worked, %s break",
		aggregate.FormatDuration(s.Day.WorkedSeconds), aggregate.FormatDuration(s.Day.BreakSeconds)))

	content := lipgloss.JoinVertical(lipgloss.Center, title, body, "", today)
	if s.Bar != "" {
		content = lipgloss.JoinVertical(lipgloss.Center, content, s.Bar)
	}

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	return content
}

func describe(e models.TimeEntry) string {
	text := "since " + e.Start.Local().Format("15:04")
	if e.Project != "" {
		text = e.Project + " " + text
	}
	if e.Location != "" {
		text += " @ " + e.Location
	}
	return text
}
