package entrylist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/models"
)

type DeleteEntryMsg struct {
	ID string
}

type ArchiveEntryMsg struct {
	ID string
}

type RestoreEntryMsg struct {
	ID string
}

type Item struct {
	Entry models.TimeEntry
}

func (i Item) Title() string {
	span := i.Entry.Start.Local().Format(constants.DateFormat + " 15:04")
	if i.Entry.End != nil {
		span += "-" + i.Entry.End.Local().Format("15:04")
	} else {
		span += " (open)"
	}
	if i.Entry.DeletedAt != nil {
		return "👻 " + span + " (deleted)"
	}
	if i.Entry.IsArchived() {
		return "🔒 " + span
	}
	return span
}

func (i Item) Description() string {
	worked, _ := aggregate.EntrySeconds(i.Entry, aggregate.Options{})
	desc := fmt.Sprintf("%s | %d min break | %s", aggregate.FormatDuration(worked), i.Entry.BreakMinutes, i.Entry.Status)
	if i.Entry.Project != "" {
		desc += " | " + i.Entry.Project
	}
	if i.Entry.DeletedAt != nil {
		desc += " | can restore with 'u'"
	}
	return desc
}

func (i Item) FilterValue() string { return i.Entry.Project + " " + i.Entry.Note }

type KeyMap struct {
	Delete  key.Binding
	Archive key.Binding
	Restore key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Archive: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "archive"),
		),
		Restore: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "undelete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(entries []models.TimeEntry, width, height int) Model {
	l := list.New(items(entries), list.NewDefaultDelegate(), width, height)
	l.Title = "Entries"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Delete, keys.Archive, keys.Restore}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Delete, keys.Archive, keys.Restore}
	}

	return Model{list: l, keys: keys}
}

func items(entries []models.TimeEntry) []list.Item {
	out := make([]list.Item, len(entries))
	for i, e := range entries {
		out[i] = Item{Entry: e}
	}
	return out
}

func (m *Model) SetEntries(entries []models.TimeEntry) {
	m.list.SetItems(items(entries))
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.list.SelectedItem().(Item); ok && i.Entry.DeletedAt == nil {
				return m, func() tea.Msg { return DeleteEntryMsg{ID: i.Entry.ID} }
			}
		case key.Matches(msg, m.keys.Archive):
			if i, ok := m.list.SelectedItem().(Item); ok && i.Entry.DeletedAt == nil && !i.Entry.IsArchived() {
				return m, func() tea.Msg { return ArchiveEntryMsg{ID: i.Entry.ID} }
			}
		case key.Matches(msg, m.keys.Restore):
			if i, ok := m.list.SelectedItem().(Item); ok && i.Entry.DeletedAt != nil {
				return m, func() tea.Msg { return RestoreEntryMsg{ID: i.Entry.ID} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No entries this week.\n  Press 's' on the Now tab to start tracking."
	}
	return m.list.View()
}
