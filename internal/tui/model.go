package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/engine"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/timeline"
	"github.com/julianstephens/daylog/internal/tui/components/entrylist"
	"github.com/julianstephens/daylog/internal/tui/components/now"
	"github.com/julianstephens/daylog/internal/tui/components/week"
)

type ViewState int

const (
	StateNow ViewState = iota
	StateWeek
	StateEntries
	StateStartForm
	StateBreakForm
)

// tabs in display order
var tabs = []ViewState{StateNow, StateWeek, StateEntries}

func (s ViewState) Title() string {
	switch s {
	case StateNow:
		return "Now"
	case StateWeek:
		return "Week"
	case StateEntries:
		return "Entries"
	default:
		return ""
	}
}

type StartFormModel struct {
	Project  string
	Location string
	Note     string
}

type BreakFormModel struct {
	Value string
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(constants.Tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type Model struct {
	eng           *engine.Engine
	state         ViewState
	previousState ViewState
	keys          KeyMap
	help          help.Model
	nowModel      now.Model
	weekModel     week.Model
	entriesModel  entrylist.Model
	form          *huh.Form
	startForm     *StartFormModel
	breakForm     *BreakFormModel
	err           string
	message       string
	quitting      bool
	width         int
	height        int
}

func NewModel(eng *engine.Engine) Model {
	m := Model{
		eng:          eng,
		state:        StateNow,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		nowModel:     now.New(),
		weekModel:    week.New(0, 0),
		entriesModel: entrylist.New(nil, 0, 0),
	}
	m.refresh()
	return m
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	if m.state == StateNow {
		keys = append(keys, m.keys.Toggle, m.keys.Pause, m.keys.Break)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	if m.state != StateNow {
		return [][]key.Binding{global}
	}
	session := []key.Binding{m.keys.Toggle, m.keys.Pause, m.keys.Cancel}
	breaks := []key.Binding{m.keys.Break, m.keys.CancelBreak, m.keys.ResumeEarly}
	return [][]key.Binding{global, session, breaks}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// refresh reloads every tab from the engine
func (m *Model) refresh() {
	at := m.eng.Now()
	snap := now.Snapshot{
		Now:            at.In(m.eng.Location()),
		State:          m.eng.State(),
		Elapsed:        m.eng.Elapsed(),
		BreakRemaining: m.eng.RemainingBreakSeconds(),
	}
	if entry, ok := m.eng.Current(); ok {
		snap.Entry = &entry
	}
	if end, ok := m.eng.BreakEndAt(); ok {
		snap.BreakEnd = &end
	}

	day, err := m.eng.DayAggregate(at)
	if err != nil {
		m.setError(err)
	}
	snap.Day = day
	snap.Bar = m.timelineBar(at)
	m.nowModel.SetSnapshot(snap)

	weekStart := m.eng.WeekStartFor(at)
	wk, err := m.eng.WeekAggregate(weekStart)
	if err != nil {
		m.setError(err)
		return
	}
	m.weekModel.SetWeek(wk)

	weekEnd := weekStart.AddDate(0, 0, 7)
	entries, err := m.eng.ListEntries(weekStart, weekEnd)
	if err != nil {
		m.setError(err)
		return
	}
	deleted, err := m.eng.ListDeleted(weekStart, weekEnd)
	if err != nil {
		m.setError(err)
		return
	}
	m.entriesModel.SetEntries(append(entries, deleted...))
}

func (m Model) timelineBar(at time.Time) string {
	cfg, err := m.eng.TimelineConfig()
	if err != nil {
		return ""
	}
	segments, err := m.eng.TimelineSegments(at)
	if err != nil {
		return ""
	}
	columns := 60
	if m.width > 20 {
		columns = m.width - 8
	}
	return timeline.RenderBar(segments, cfg, columns)
}

func (m *Model) setError(err error) {
	if err == nil {
		m.err = ""
		return
	}
	logger.Debug("TUI action failed", "error", err)
	m.err = err.Error()
	m.message = ""
}

func (m *Model) setMessage(msg string) {
	m.message = msg
	m.err = ""
}

func newStartForm(fm *StartFormModel) *huh.Form {
	locations := []huh.Option[string]{huh.NewOption("(none)", "")}
	for _, l := range constants.KnownLocations {
		locations = append(locations, huh.NewOption(l, l))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project").
				Value(&fm.Project),
			huh.NewSelect[string]().
				Title("Location").
				Options(locations...).
				Value(&fm.Location),
			huh.NewInput().
				Title("Note").
				Value(&fm.Note),
		),
	)
}

func newBreakForm(fm *BreakFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Break").
				Description("Minutes, or a clock time like 12:30").
				Value(&fm.Value).
				Validate(func(s string) error {
					_, _, err := parseBreak(s)
					return err
				}),
		),
	)
}

func (fm StartFormModel) draft() models.EntryDraft {
	return models.EntryDraft{
		Project:  fm.Project,
		Location: fm.Location,
		Note:     fm.Note,
	}
}
