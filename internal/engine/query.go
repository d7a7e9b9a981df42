package engine

import (
	"time"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/session"
	"github.com/julianstephens/daylog/internal/timeline"
)

// Status is a point-in-time view of the session for display.
type Status struct {
	State                 string            `json:"state" yaml:"state"`
	Entry                 *models.TimeEntry `json:"entry,omitempty" yaml:"entry,omitempty"`
	ElapsedSeconds        int64             `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	PausedSeconds         int64             `json:"paused_seconds" yaml:"paused_seconds"`
	PausedAt              *time.Time        `json:"paused_at,omitempty" yaml:"paused_at,omitempty"`
	BreakEndAt            *time.Time        `json:"break_end_at,omitempty" yaml:"break_end_at,omitempty"`
	RemainingBreakSeconds int64             `json:"remaining_break_seconds" yaml:"remaining_break_seconds"`
}

func (e *Engine) UserID() string {
	return e.userID
}

func (e *Engine) State() session.State {
	return e.session.State()
}

// Current returns the open entry, if any
func (e *Engine) Current() (models.TimeEntry, bool) {
	if !e.session.IsOpen() {
		return models.TimeEntry{}, false
	}
	return e.session.Entry(), true
}

// Elapsed is the worked time of the session so far. After Stop it keeps
// reporting the final value until the next Start.
func (e *Engine) Elapsed() time.Duration {
	return e.session.Elapsed()
}

func (e *Engine) RemainingBreakSeconds() int64 {
	return e.breaks.RemainingSeconds()
}

// BreakEndAt returns when the scheduled break ends
func (e *Engine) BreakEndAt() (time.Time, bool) {
	return e.breaks.EndAt()
}

func (e *Engine) Status() Status {
	st := Status{
		State:                 e.session.State().String(),
		ElapsedSeconds:        e.session.ElapsedSeconds(),
		PausedSeconds:         e.session.PausedSeconds(),
		BreakEndAt:            e.breakEnd(),
		RemainingBreakSeconds: e.breaks.RemainingSeconds(),
	}
	if entry, ok := e.Current(); ok {
		st.Entry = &entry
	}
	if at, ok := e.session.PausedAt(); ok {
		st.PausedAt = &at
	}
	return st
}

func (e *Engine) Settings() models.Settings {
	return e.settings
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

// WeekStartFor returns the first day of the configured week containing t
func (e *Engine) WeekStartFor(t time.Time) time.Time {
	return aggregate.WeekStartFor(t, e.settings.WeekStart, e.loc)
}

// options carries the live pause time of the open entry into aggregation,
// so totals move second by second while paused instead of minute by minute.
func (e *Engine) options() aggregate.Options {
	opts := aggregate.Options{Now: e.clock.Now(), Location: e.loc}
	if entry, ok := e.Current(); ok {
		opts.Live = &aggregate.Live{
			EntryID:      entry.ID,
			BreakSeconds: int64(e.session.ManualBreakMinutes())*60 + e.session.PausedSeconds(),
		}
	}
	return opts
}

// entriesBetween lists the user's entries starting in [from, to)
func (e *Engine) entriesBetween(from, to time.Time) ([]models.TimeEntry, error) {
	return e.store.ListEntries(models.EntryFilter{UserID: e.userID, From: from, To: to})
}

func (e *Engine) dayBounds(date time.Time) (time.Time, time.Time) {
	day := aggregate.DateOf(date, e.loc)
	return day, day.AddDate(0, 0, 1)
}

// DayAggregate totals the entries that start on date.
func (e *Engine) DayAggregate(date time.Time) (aggregate.Day, error) {
	from, to := e.dayBounds(date)
	entries, err := e.entriesBetween(from, to)
	if err != nil {
		return aggregate.Day{}, err
	}
	return aggregate.ForDay(entries, from, e.options()), nil
}

// WeekAggregate totals the seven days from weekStart against the weekly
// target.
func (e *Engine) WeekAggregate(weekStart time.Time) (aggregate.Week, error) {
	from := aggregate.DateOf(weekStart, e.loc)
	entries, err := e.entriesBetween(from, from.AddDate(0, 0, 7))
	if err != nil {
		return aggregate.Week{}, err
	}
	target := int64(e.settings.WeeklyTargetMin) * 60
	return aggregate.ForWeek(entries, from, target, e.options()), nil
}

// TimelineSegments lays out the entries that start on date.
func (e *Engine) TimelineSegments(date time.Time) ([]timeline.Segment, error) {
	cfg, err := e.TimelineConfig()
	if err != nil {
		return nil, err
	}
	from, to := e.dayBounds(date)
	entries, err := e.entriesBetween(from, to)
	if err != nil {
		return nil, err
	}
	return timeline.Layout(entries, from, cfg, e.clock.Now()), nil
}

func (e *Engine) TimelineConfig() (timeline.Config, error) {
	return timeline.ConfigFromSettings(e.settings)
}

// Summary feeds the dashboard widgets for [from, to).
func (e *Engine) Summary(from, to time.Time) (aggregate.Summary, error) {
	entries, err := e.entriesBetween(from, to)
	if err != nil {
		return aggregate.Summary{}, err
	}
	return aggregate.Summarize(entries, from, to, e.options()), nil
}

// Now reads the engine's clock
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}
