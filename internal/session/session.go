// Package session implements the live tracking state machine:
// Idle -> Active <-> Paused -> Idle.
//
// The accumulator fields (start, pausedAt, pausedSeconds) are the only source
// of truth. Elapsed time is always recomputed from them and the clock, never
// kept in a running timer, so a session rebuilt from persisted fields reports
// exactly the same value.
package session

import (
	"fmt"
	"time"

	"github.com/julianstephens/daylog/internal/clock"
	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
)

// State is the lifecycle state of a session
type State int

const (
	Idle State = iota
	Active
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the in-memory view of the single open time entry.
type Session struct {
	clock clock.Clock
	state State
	entry models.TimeEntry

	pausedAt      time.Time
	pausedSeconds int64
	manualBreak   int // break minutes entered by hand, excluding pauses

	// stoppedElapsed holds the final value after Stop so Elapsed can be
	// queried once more from Idle
	stoppedElapsed int64
}

// New creates an idle session
func New(c clock.Clock) *Session {
	return &Session{clock: c}
}

// Restore rebuilds a session from an open entry and its persisted state.
// A zero state (no row yet) restores an active session with nothing paused.
func Restore(c clock.Clock, entry models.TimeEntry, st models.SessionState) (*Session, error) {
	if !entry.IsOpen() {
		return nil, fmt.Errorf("cannot restore session from closed entry %s", entry.ID)
	}
	if st.EntryID != "" && st.EntryID != entry.ID {
		return nil, fmt.Errorf("session state belongs to entry %s, not %s", st.EntryID, entry.ID)
	}
	if st.PausedSeconds < 0 {
		return nil, fmt.Errorf("session state has negative paused seconds")
	}

	s := &Session{
		clock:         c,
		state:         Active,
		entry:         entry,
		pausedSeconds: st.PausedSeconds,
	}
	s.manualBreak = entry.BreakMinutes - ceilMinutes(st.PausedSeconds)
	if s.manualBreak < 0 {
		s.manualBreak = 0
	}
	if st.PausedAt != nil {
		s.state = Paused
		s.pausedAt = *st.PausedAt
	}
	s.syncEntry()
	return s, nil
}

// now truncates to whole seconds so every recorded timestamp survives a
// round-trip through the store unchanged.
func (s *Session) now() time.Time {
	return s.clock.Now().Truncate(time.Second)
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// IsOpen reports whether an entry is being tracked
func (s *Session) IsOpen() bool {
	return s.state != Idle
}

// Entry returns a copy of the tracked entry. After Stop it is the completed
// entry until the next Start.
func (s *Session) Entry() models.TimeEntry {
	return s.entry
}

// Start opens a new session at the current time from draft. The returned
// entry has no id yet; call Bind once the store has assigned one.
func (s *Session) Start(draft models.EntryDraft) (models.TimeEntry, error) {
	if s.state != Idle {
		return models.TimeEntry{}, derrors.NewInvalidState("start", s.state.String())
	}
	if draft.BreakMinutes < 0 {
		return models.TimeEntry{}, &derrors.ValidationError{Problems: []string{"break minutes must not be negative"}}
	}

	entry := draft.Entry()
	entry.Start = s.now()
	entry.End = nil
	entry.Status = constants.StatusActive

	s.entry = entry
	s.state = Active
	s.pausedAt = time.Time{}
	s.pausedSeconds = 0
	s.manualBreak = draft.BreakMinutes
	s.stoppedElapsed = 0
	return s.entry, nil
}

// Bind replaces the tracked entry with the stored version, keeping the
// accumulator. The stored entry must describe the same span.
func (s *Session) Bind(stored models.TimeEntry) error {
	if s.state == Idle {
		return derrors.NewInvalidState("bind", s.state.String())
	}
	if !stored.Start.Equal(s.entry.Start) {
		return fmt.Errorf("stored entry starts at %s, session started at %s", stored.Start, s.entry.Start)
	}
	s.entry.ID = stored.ID
	s.entry.CreatedAt = stored.CreatedAt
	s.entry.UpdatedAt = stored.UpdatedAt
	return nil
}

// Pause records the start of a pause. Pausing a paused session is a benign
// no-op reported as ErrAlreadyPaused.
func (s *Session) Pause() error {
	switch s.state {
	case Active:
		s.pausedAt = s.now()
		s.state = Paused
		s.syncEntry()
		return nil
	case Paused:
		return derrors.ErrAlreadyPaused
	default:
		return derrors.NewInvalidState("pause", s.state.String())
	}
}

// Resume folds the running pause into the accumulator. Resuming an active
// session is a benign no-op reported as ErrNotPaused.
func (s *Session) Resume() error {
	return s.ResumeAt(s.now())
}

// ResumeAt ends the running pause at t instead of now. t is clamped into
// [pausedAt, now] so a late caller cannot credit time that has not passed.
func (s *Session) ResumeAt(t time.Time) error {
	switch s.state {
	case Paused:
		t = t.Truncate(time.Second)
		if now := s.now(); t.After(now) {
			t = now
		}
		if t.Before(s.pausedAt) {
			t = s.pausedAt
		}
		s.pausedSeconds += int64(t.Sub(s.pausedAt) / time.Second)
		s.pausedAt = time.Time{}
		s.state = Active
		s.syncEntry()
		return nil
	case Active:
		return derrors.ErrNotPaused
	default:
		return derrors.NewInvalidState("resume", s.state.String())
	}
}

// Stop closes the entry at the current time. A trailing pause is counted as
// break, never as worked time.
func (s *Session) Stop() (models.TimeEntry, error) {
	return s.close("stop", constants.StatusCompleted)
}

// Cancel closes the entry like Stop but marks it cancelled so aggregates
// ignore it.
func (s *Session) Cancel() (models.TimeEntry, error) {
	return s.close("cancel", constants.StatusCancelled)
}

func (s *Session) close(action string, status constants.EntryStatus) (models.TimeEntry, error) {
	if s.state == Idle {
		return models.TimeEntry{}, derrors.NewInvalidState(action, s.state.String())
	}

	end := s.now()
	if s.state == Paused {
		s.pausedSeconds += s.currentPause()
		s.pausedAt = time.Time{}
	}
	if end.Before(s.entry.Start) {
		end = s.entry.Start
	}

	span := int64(end.Sub(s.entry.Start) / time.Second)
	s.state = Idle
	s.entry.End = &end
	s.entry.Status = status
	s.entry.BreakMinutes = s.breakMinutes()
	if maxBreak := int(span / 60); s.entry.BreakMinutes > maxBreak {
		s.entry.BreakMinutes = maxBreak
	}
	s.stoppedElapsed = span - s.pausedSeconds
	if s.stoppedElapsed < 0 {
		s.stoppedElapsed = 0
	}
	return s.entry, nil
}

// Undo restores a session that was closed by Stop or Cancel but whose end
// could not be committed. prev must be the snapshot taken before closing.
func (s *Session) Undo(prev models.SessionState) error {
	if s.state != Idle || s.entry.End == nil {
		return derrors.NewInvalidState("undo", s.state.String())
	}
	entry := s.entry
	entry.End = nil
	entry.BreakMinutes = s.manualBreak + ceilMinutes(prev.PausedSeconds)
	restored, err := Restore(s.clock, entry, prev)
	if err != nil {
		return err
	}
	*s = *restored
	return nil
}

// SetManualBreak replaces the hand-entered break minutes of an open entry.
func (s *Session) SetManualBreak(minutes int) error {
	if s.state == Idle {
		return derrors.NewInvalidState("edit break", s.state.String())
	}
	if minutes < 0 {
		return &derrors.ValidationError{Problems: []string{"break minutes must not be negative"}}
	}
	s.manualBreak = minutes
	s.syncEntry()
	return nil
}

// Annotate updates the free-form classification fields of the open entry
func (s *Session) Annotate(patch models.EntryPatch) error {
	if s.state == Idle {
		return derrors.NewInvalidState("edit", s.state.String())
	}
	patch.Start, patch.End, patch.BreakMinutes, patch.Status = nil, nil, nil, nil
	s.entry = patch.Apply(s.entry)
	return nil
}

// Elapsed is now - start - pausedAccumulator - currentPause. It is a pure
// read and never changes state.
func (s *Session) Elapsed() time.Duration {
	return time.Duration(s.ElapsedSeconds()) * time.Second
}

// ElapsedSeconds returns Elapsed in whole seconds
func (s *Session) ElapsedSeconds() int64 {
	if s.state == Idle {
		return s.stoppedElapsed
	}
	now := s.clock.Now()
	if s.state == Paused {
		now = s.pausedAt
	}
	elapsed := int64(now.Sub(s.entry.Start)/time.Second) - s.pausedSeconds
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// PausedSeconds returns the accumulated pause time, including a pause in
// progress.
func (s *Session) PausedSeconds() int64 {
	if s.state == Paused {
		return s.pausedSeconds + s.currentPause()
	}
	return s.pausedSeconds
}

// ManualBreakMinutes returns the hand-entered part of the break
func (s *Session) ManualBreakMinutes() int {
	return s.manualBreak
}

// PausedAt returns when the current pause began, if paused
func (s *Session) PausedAt() (time.Time, bool) {
	return s.pausedAt, s.state == Paused
}

// Snapshot returns the persisted form of the accumulator
func (s *Session) Snapshot() models.SessionState {
	st := models.SessionState{
		UserID:        s.entry.UserID,
		EntryID:       s.entry.ID,
		PausedSeconds: s.pausedSeconds,
	}
	if s.state == Paused {
		pausedAt := s.pausedAt
		st.PausedAt = &pausedAt
	}
	return st
}

func (s *Session) currentPause() int64 {
	if s.state != Paused {
		return 0
	}
	d := int64(s.now().Sub(s.pausedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Session) breakMinutes() int {
	return s.manualBreak + ceilMinutes(s.pausedSeconds)
}

func (s *Session) syncEntry() {
	s.entry.BreakMinutes = s.breakMinutes()
	switch s.state {
	case Active:
		s.entry.Status = constants.StatusActive
	case Paused:
		s.entry.Status = constants.StatusPaused
	}
}

func ceilMinutes(seconds int64) int {
	if seconds <= 0 {
		return 0
	}
	return int((seconds + 59) / 60)
}
