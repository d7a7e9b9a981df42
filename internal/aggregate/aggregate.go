// Package aggregate computes day and week totals from time entries. All
// functions are pure: the same entries and Now give the same result.
package aggregate

import (
	"sort"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/models"
)

// Options carries the inputs besides the entries themselves
type Options struct {
	// Now closes open entries for display. It is never written back.
	Now time.Time
	// Location decides which calendar day an entry starts on. Nil means UTC.
	Location *time.Location
	// Live, when set, replaces the stored break of the open entry with the
	// exact pause time of the running session.
	Live *Live
}

// Live is the running session's exact break accounting
type Live struct {
	EntryID      string
	BreakSeconds int64
}

func (o Options) loc() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Day totals the entries that start on one calendar date.
type Day struct {
	Date          time.Time  `json:"date" yaml:"date"`
	WorkedSeconds int64      `json:"worked_seconds" yaml:"worked_seconds"`
	BreakSeconds  int64      `json:"break_seconds" yaml:"break_seconds"`
	FirstStart    *time.Time `json:"first_start,omitempty" yaml:"first_start,omitempty"`
	LastEnd       *time.Time `json:"last_end,omitempty" yaml:"last_end,omitempty"`
	InProgress    bool       `json:"in_progress" yaml:"in_progress"`
	EntryCount    int        `json:"entry_count" yaml:"entry_count"`
}

// Week totals seven consecutive days.
type Week struct {
	Start           time.Time `json:"start" yaml:"start"`
	Days            []Day     `json:"days" yaml:"days"`
	WorkedSeconds   int64     `json:"worked_seconds" yaml:"worked_seconds"`
	BreakSeconds    int64     `json:"break_seconds" yaml:"break_seconds"`
	TargetSeconds   int64     `json:"target_seconds" yaml:"target_seconds"`
	OvertimeSeconds int64     `json:"overtime_seconds" yaml:"overtime_seconds"`
	EntryCount      int       `json:"entry_count" yaml:"entry_count"`
}

// Counted reports whether an entry contributes to totals. Cancelled and
// deleted entries do not.
func Counted(e models.TimeEntry) bool {
	return e.DeletedAt == nil && e.Status != constants.StatusCancelled
}

// EntrySeconds returns the worked and break seconds of one entry. Open
// entries end at opts.Now. A break longer than the span is clamped to the
// span so worked time never goes negative.
func EntrySeconds(e models.TimeEntry, opts Options) (worked, brk int64) {
	span := int64(e.EndOr(opts.Now).Sub(e.Start) / time.Second)
	if span < 0 {
		span = 0
	}
	brk = int64(e.BreakMinutes) * 60
	if e.IsOpen() && opts.Live != nil && opts.Live.EntryID == e.ID {
		brk = opts.Live.BreakSeconds
	}
	if brk < 0 {
		brk = 0
	}
	if brk > span {
		brk = span
	}
	return span - brk, brk
}

// DateOf returns local midnight of the day t falls on
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ForDay aggregates the entries whose start falls on date. An entry that
// crosses midnight belongs wholly to its start date.
func ForDay(entries []models.TimeEntry, date time.Time, opts Options) Day {
	loc := opts.loc()
	day := Day{Date: DateOf(date, loc)}

	for _, e := range sorted(entries) {
		if !Counted(e) || !DateOf(e.Start, loc).Equal(day.Date) {
			continue
		}
		worked, brk := EntrySeconds(e, opts)
		day.WorkedSeconds += worked
		day.BreakSeconds += brk
		day.EntryCount++

		if day.FirstStart == nil || e.Start.Before(*day.FirstStart) {
			start := e.Start
			day.FirstStart = &start
		}
		if e.IsOpen() {
			day.InProgress = true
			continue
		}
		if day.LastEnd == nil || e.End.After(*day.LastEnd) {
			end := *e.End
			day.LastEnd = &end
		}
	}
	return day
}

// ForWeek aggregates the seven days starting at weekStart. Overtime keeps
// its sign, so a week under target is negative.
func ForWeek(entries []models.TimeEntry, weekStart time.Time, targetSeconds int64, opts Options) Week {
	loc := opts.loc()
	start := DateOf(weekStart, loc)
	week := Week{Start: start, TargetSeconds: targetSeconds, Days: make([]Day, 0, 7)}

	for i := 0; i < 7; i++ {
		day := ForDay(entries, start.AddDate(0, 0, i), opts)
		week.Days = append(week.Days, day)
		week.WorkedSeconds += day.WorkedSeconds
		week.BreakSeconds += day.BreakSeconds
		week.EntryCount += day.EntryCount
	}
	week.OvertimeSeconds = week.WorkedSeconds - targetSeconds
	return week
}

// WeekStartFor returns the first day of the week containing t
func WeekStartFor(t time.Time, first time.Weekday, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	day := DateOf(t, loc)
	back := (int(day.Weekday()) - int(first) + 7) % 7
	return day.AddDate(0, 0, -back)
}

func sorted(entries []models.TimeEntry) []models.TimeEntry {
	out := make([]models.TimeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
