package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/engine"
	"github.com/julianstephens/daylog/internal/session"
	"github.com/julianstephens/daylog/internal/tui/components/entrylist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// the break timer keeps running behind forms
	if t, ok := msg.(tickMsg); ok {
		resumed, err := m.eng.Tick()
		if err != nil {
			m.setError(err)
		} else if resumed {
			m.setMessage("Break over at " + time.Time(t).In(m.eng.Location()).Format("15:04"))
		}
		m.refresh()
		return m, tick()
	}

	if m.state == StateStartForm || m.state == StateBreakForm {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := docStyle.GetFrameSize()
		contentHeight := msg.Height - v - 4
		m.nowModel.SetSize(msg.Width-h, contentHeight)
		m.weekModel.SetSize(msg.Width-h, contentHeight)
		m.entriesModel.SetSize(msg.Width-h, contentHeight)
		m.help.Width = msg.Width - h
		m.refresh()
		return m, nil

	case entrylist.DeleteEntryMsg:
		m.result(m.eng.DeleteEntry(msg.ID), "Entry deleted")
		return m, nil
	case entrylist.ArchiveEntryMsg:
		m.result(m.eng.ArchiveEntry(msg.ID), "Entry archived")
		return m, nil
	case entrylist.RestoreEntryMsg:
		m.result(m.eng.RestoreEntry(msg.ID), "Entry restored")
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.state = nextTab(m.state, 1)
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = nextTab(m.state, -1)
			return m, nil
		}
		if m.state == StateNow {
			return m.updateNow(msg)
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateWeek:
		m.weekModel, cmd = m.weekModel.Update(msg)
	case StateEntries:
		m.entriesModel, cmd = m.entriesModel.Update(msg)
	}
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func nextTab(current ViewState, step int) ViewState {
	for i, s := range tabs {
		if s == current {
			return tabs[(i+step+len(tabs))%len(tabs)]
		}
	}
	return StateNow
}

func (m Model) updateNow(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		if m.eng.State() == session.Idle {
			m.startForm = &StartFormModel{}
			m.form = newStartForm(m.startForm)
			m.previousState = m.state
			m.state = StateStartForm
			return m, m.form.Init()
		}
		entry, err := m.eng.Stop()
		m.result(err, fmt.Sprintf("Stopped after %s", formatWorked(entry)))
	case key.Matches(msg, m.keys.Pause):
		if m.eng.State() == session.Paused {
			m.result(m.eng.Resume(), "Resumed")
		} else {
			m.result(m.eng.Pause(), "Paused")
		}
	case key.Matches(msg, m.keys.Break):
		m.breakForm = &BreakFormModel{}
		m.form = newBreakForm(m.breakForm)
		m.previousState = m.state
		m.state = StateBreakForm
		return m, m.form.Init()
	case key.Matches(msg, m.keys.CancelBreak):
		cancelled, err := m.eng.CancelBreak()
		switch {
		case err != nil:
			m.setError(err)
		case cancelled:
			m.setMessage("Break cancelled, still paused")
		default:
			m.setMessage("No break scheduled")
		}
		m.refresh()
	case key.Matches(msg, m.keys.ResumeEarly):
		m.result(m.eng.ResumeEarly(), "Break ended early")
	case key.Matches(msg, m.keys.Cancel):
		_, err := m.eng.Cancel()
		m.result(err, "Session discarded")
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		if m.state == StateStartForm {
			_, err := m.eng.Start(m.startForm.draft())
			m.result(err, "Tracking started")
		} else {
			m.scheduleBreak(m.breakForm.Value)
		}
		m.state = m.previousState
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) scheduleBreak(value string) {
	minutes, until, err := parseBreak(value)
	if err != nil {
		m.setError(err)
		return
	}
	var end time.Time
	if until != "" {
		end, err = m.eng.ScheduleUntil(until)
	} else {
		end, err = m.eng.ScheduleFor(minutes)
	}
	m.result(err, "Break until "+end.In(m.eng.Location()).Format("15:04"))
}

// result reports the outcome of an engine call and reloads the view
func (m *Model) result(err error, success string) {
	switch {
	case err == nil:
		m.setMessage(success)
	case engine.IsBenign(err):
		m.setMessage(err.Error())
	default:
		m.setError(err)
	}
	m.refresh()
}

// parseBreak accepts a number of minutes or an HH:MM clock time
func parseBreak(s string) (int, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", fmt.Errorf("enter minutes or a clock time")
	}
	if strings.Contains(s, ":") {
		if _, err := time.Parse(constants.TimeFormat, s); err != nil {
			return 0, "", fmt.Errorf("invalid clock time %q", s)
		}
		return 0, s, nil
	}
	minutes, err := strconv.Atoi(s)
	if err != nil {
		return 0, "", fmt.Errorf("invalid minutes %q", s)
	}
	if minutes < constants.MinBreakMinutes || minutes > constants.MaxBreakMinutes {
		return 0, "", fmt.Errorf("break must be between %d and %d minutes", constants.MinBreakMinutes, constants.MaxBreakMinutes)
	}
	return minutes, "", nil
}
