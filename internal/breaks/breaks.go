// Package breaks schedules timed pauses on top of a session and resumes the
// session when the countdown runs out.
package breaks

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/daylog/internal/clock"
	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/session"
)

// Scheduler holds at most one scheduled break for a session.
type Scheduler struct {
	clock   clock.Clock
	session *session.Session
	loc     *time.Location

	endAt  time.Time
	active bool
}

// New creates a scheduler for s. Wall-clock times passed to ScheduleUntil
// are read in loc; a nil loc uses the location of the clock.
func New(c clock.Clock, s *session.Session, loc *time.Location) *Scheduler {
	return &Scheduler{clock: c, session: s, loc: loc}
}

// Attach points the scheduler at a new session and drops any break that
// belonged to the old one.
func (b *Scheduler) Attach(s *session.Session) {
	b.session = s
	b.clear()
}

func (b *Scheduler) now() time.Time {
	now := b.clock.Now()
	if b.loc != nil {
		now = now.In(b.loc)
	}
	return now
}

// ScheduleFor pauses the session (if needed) for minutes and returns the
// time at which it will resume. A previous break is replaced.
func (b *Scheduler) ScheduleFor(minutes int) (time.Time, error) {
	if minutes < constants.MinBreakMinutes || minutes > constants.MaxBreakMinutes {
		return time.Time{}, &derrors.RangeError{
			Field: "break minutes",
			Value: minutes,
			Min:   constants.MinBreakMinutes,
			Max:   constants.MaxBreakMinutes,
		}
	}
	return b.schedule(b.now().Truncate(time.Second).Add(time.Duration(minutes) * time.Minute))
}

// ScheduleUntil pauses the session until the next occurrence of the HH:MM
// wall-clock time. A time at or before now means tomorrow. A target less
// than a minute away is rejected like ScheduleFor(0).
func (b *Scheduler) ScheduleUntil(clockTime string) (time.Time, error) {
	now := b.now()
	endAt, err := NextOccurrence(now, clockTime)
	if err != nil {
		return time.Time{}, err
	}
	if d := endAt.Sub(now); d < constants.MinBreakMinutes*time.Minute {
		return time.Time{}, &derrors.RangeError{
			Field: "break minutes",
			Value: int(d / time.Minute),
			Min:   constants.MinBreakMinutes,
			Max:   24 * 60,
		}
	}
	return b.schedule(endAt)
}

// NextOccurrence returns the first instant after now whose wall-clock time
// in now's location is clockTime (HH:MM).
func NextOccurrence(now time.Time, clockTime string) (time.Time, error) {
	tod, err := time.Parse(constants.TimeFormat, strings.TrimSpace(clockTime))
	if err != nil {
		return time.Time{}, &derrors.ValidationError{
			Problems: []string{fmt.Sprintf("invalid time %q, expected HH:MM", clockTime)},
		}
	}
	y, m, d := now.Date()
	endAt := time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, now.Location())
	if !endAt.After(now) {
		endAt = time.Date(y, m, d+1, tod.Hour(), tod.Minute(), 0, 0, now.Location())
	}
	return endAt, nil
}

func (b *Scheduler) schedule(endAt time.Time) (time.Time, error) {
	if b.session == nil || !b.session.IsOpen() {
		return time.Time{}, derrors.NewInvalidState("schedule break", session.Idle.String())
	}
	if err := b.session.Pause(); err != nil && !errors.Is(err, derrors.ErrAlreadyPaused) {
		return time.Time{}, err
	}
	b.endAt = endAt
	b.active = true
	return endAt, nil
}

// Tick recomputes the countdown. When it has run out the session is resumed
// at the scheduled end and the break is cleared, so a break fires once. It
// reports whether this tick resumed the session.
func (b *Scheduler) Tick() (bool, error) {
	if !b.active {
		return false, nil
	}
	if b.RemainingSeconds() > 0 {
		return false, nil
	}
	endAt := b.endAt
	b.clear()

	if b.session == nil {
		return false, nil
	}
	err := b.session.ResumeAt(endAt)
	if err != nil {
		var invalid *derrors.InvalidStateError
		if errors.As(err, &invalid) {
			// already resumed by hand or stopped; nothing left to do
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResumeEarly drops the break and resumes the session now.
func (b *Scheduler) ResumeEarly() error {
	if b.session == nil {
		return derrors.NewInvalidState("resume", session.Idle.String())
	}
	err := b.session.Resume()
	if err == nil || errors.Is(err, derrors.ErrNotPaused) {
		b.clear()
	}
	return err
}

// Cancel drops the break and leaves the session paused. It reports whether a
// break was scheduled.
func (b *Scheduler) Cancel() bool {
	was := b.active
	b.clear()
	return was
}

// Active reports whether a break is scheduled
func (b *Scheduler) Active() bool {
	return b.active
}

// EndAt returns the scheduled resume time
func (b *Scheduler) EndAt() (time.Time, bool) {
	return b.endAt, b.active
}

// RemainingSeconds is max(0, endAt - now), rounded up so it only reaches
// zero once endAt has passed.
func (b *Scheduler) RemainingSeconds() int64 {
	if !b.active {
		return 0
	}
	d := b.endAt.Sub(b.clock.Now())
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// Restore reinstates a persisted break. It is ignored unless the session is
// paused, since only a paused session can be waiting on a break.
func (b *Scheduler) Restore(endAt *time.Time) {
	b.clear()
	if endAt == nil || b.session == nil || b.session.State() != session.Paused {
		return
	}
	b.endAt = *endAt
	b.active = true
}

func (b *Scheduler) clear() {
	b.endAt = time.Time{}
	b.active = false
}
