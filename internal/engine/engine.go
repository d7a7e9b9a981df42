// Package engine is the single entry point for tracking. It owns the live
// session and break scheduler of one user, applies every transition in
// memory first and then commits it to the store, and answers the display
// queries.
//
// An Engine is not safe for concurrent use. Callers that share one across
// goroutines must serialize access.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/daylog/internal/breaks"
	"github.com/julianstephens/daylog/internal/clock"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/session"
	"github.com/julianstephens/daylog/internal/storage"
)

// Notifier is told when a scheduled break ends on its own.
type Notifier interface {
	BreakEnded(endedAt time.Time) error
}

type Engine struct {
	store    storage.Provider
	clock    clock.Clock
	userID   string
	notifier Notifier

	settings models.Settings
	loc      *time.Location

	session *session.Session
	breaks  *breaks.Scheduler
}

type Option func(*Engine)

// WithClock replaces the system clock
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithNotifier sets who hears about automatic resumes
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New loads settings and any open session of userID from store.
func New(store storage.Provider, userID string, opts ...Option) (*Engine, error) {
	if userID == "" {
		return nil, errors.New("engine needs a user id")
	}
	e := &Engine{store: store, userID: userID, clock: clock.System()}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.loadSettings(); err != nil {
		return nil, err
	}
	e.session = session.New(e.clock)
	e.breaks = newScheduler(e)
	if err := e.Resync(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) loadSettings() error {
	settings, err := e.store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	loc, err := settings.Location()
	if err != nil {
		return err
	}
	e.settings = settings
	e.loc = loc
	return nil
}

// Resync discards the in-memory session and rebuilds it from the store.
// A persisted break is reinstated as well, so elapsed and remaining time
// read the same before and after a restart.
func (e *Engine) Resync() error {
	open, err := e.store.GetOpenEntry(e.userID)
	if errors.Is(err, storage.ErrNotFound) {
		e.adopt(session.New(e.clock), nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load open entry: %w", err)
	}

	st, err := e.store.GetSessionState(e.userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		st = models.SessionState{}
	case err != nil:
		return fmt.Errorf("failed to load session state: %w", err)
	case st.EntryID != open.ID:
		logger.Warn("Ignoring session state of another entry", "user", e.userID, "state_entry", st.EntryID, "open_entry", open.ID)
		st = models.SessionState{}
	}

	s, err := session.Restore(e.clock, open, st)
	if err != nil {
		return err
	}
	e.adopt(s, st.BreakEndAt)
	logger.Debug("Session resynced", "user", e.userID, "entry", open.ID, "state", s.State())
	return nil
}

func newScheduler(e *Engine) *breaks.Scheduler {
	return breaks.New(e.clock, e.session, e.loc)
}

func (e *Engine) adopt(s *session.Session, breakEnd *time.Time) {
	e.session = s
	e.breaks.Attach(s)
	e.breaks.Restore(breakEnd)
}

// checkpoint is everything needed to undo an uncommitted transition
type checkpoint struct {
	entry    models.TimeEntry
	state    models.SessionState
	breakEnd *time.Time
	open     bool
}

func (e *Engine) checkpoint() checkpoint {
	return checkpoint{
		entry:    e.session.Entry(),
		state:    e.snapshot(),
		breakEnd: e.breakEnd(),
		open:     e.session.IsOpen(),
	}
}

func (e *Engine) rollback(cp checkpoint) {
	if !cp.open {
		e.adopt(session.New(e.clock), nil)
		return
	}
	s, err := session.Restore(e.clock, cp.entry, cp.state)
	if err != nil {
		// the checkpoint came from a live session, so this means the store
		// is the better source
		logger.Error("Rollback failed, resyncing", "user", e.userID, "error", err)
		if err := e.Resync(); err != nil {
			logger.Error("Resync failed", "user", e.userID, "error", err)
		}
		return
	}
	e.adopt(s, cp.breakEnd)
}

func (e *Engine) breakEnd() *time.Time {
	if endAt, ok := e.breaks.EndAt(); ok {
		return &endAt
	}
	return nil
}

func (e *Engine) snapshot() models.SessionState {
	st := e.session.Snapshot()
	st.UserID = e.userID
	st.BreakEndAt = e.breakEnd()
	return st
}

// commit writes the open entry's status and break plus the accumulator.
func (e *Engine) commit() error {
	cur := e.session.Entry()
	status, brk := cur.Status, cur.BreakMinutes
	if _, err := e.store.UpdateEntry(cur.ID, models.EntryPatch{Status: &status, BreakMinutes: &brk}); err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if err := e.store.SaveSessionState(e.snapshot()); err != nil {
		return err
	}
	return nil
}

// apply runs an in-memory transition and commits it, undoing the
// transition if the store refuses.
func (e *Engine) apply(action string, transition func() error) error {
	cp := e.checkpoint()
	if err := transition(); err != nil {
		return err
	}
	if err := e.commit(); err != nil {
		logger.Error("Persisting transition failed", "action", action, "user", e.userID, "error", err)
		e.rollback(cp)
		return err
	}
	logger.Info("Session "+action, "user", e.userID, "entry", e.session.Entry().ID, "state", e.session.State())
	return nil
}

// Start opens a new entry now. The draft supplies project, location, note
// and cost centre; its start, end and status are ignored. If the store
// already holds an open entry the engine adopts it and returns the
// *errors.ConflictError.
func (e *Engine) Start(draft models.EntryDraft) (models.TimeEntry, error) {
	draft.UserID = e.userID
	entry, err := e.session.Start(draft)
	if err != nil {
		return models.TimeEntry{}, err
	}

	stored, err := e.store.CreateEntry(models.EntryDraft{
		UserID:       entry.UserID,
		Start:        entry.Start,
		BreakMinutes: entry.BreakMinutes,
		Project:      entry.Project,
		Location:     entry.Location,
		Note:         entry.Note,
		CostCenter:   entry.CostCenter,
		Category:     entry.Category,
		Status:       entry.Status,
	})
	if err != nil {
		e.adopt(session.New(e.clock), nil)
		var conflict *derrors.ConflictError
		if errors.As(err, &conflict) {
			logger.Warn("Open entry already exists, resyncing from store", "user", e.userID, "reason", conflict.Reason)
			if rerr := e.Resync(); rerr != nil {
				return models.TimeEntry{}, errors.Join(err, rerr)
			}
		}
		return models.TimeEntry{}, err
	}

	if err := e.session.Bind(stored); err != nil {
		return models.TimeEntry{}, err
	}
	if err := e.store.SaveSessionState(e.snapshot()); err != nil {
		// a missing state row restores as active with nothing paused
		logger.Warn("Failed to save session state", "user", e.userID, "error", err)
	}
	logger.Info("Session started", "user", e.userID, "entry", stored.ID)
	return e.session.Entry(), nil
}

// Pause pauses the session. A second Pause returns errors.ErrAlreadyPaused
// and changes nothing.
func (e *Engine) Pause() error {
	return e.apply("paused", e.session.Pause)
}

// Resume ends the current pause and drops any scheduled break.
func (e *Engine) Resume() error {
	return e.apply("resumed", e.breaks.ResumeEarly)
}

// ResumeEarly ends a scheduled break now. Only the pause time that actually
// passed is counted.
func (e *Engine) ResumeEarly() error {
	if endAt, ok := e.breaks.EndAt(); ok {
		logger.Debug("Ending break early", "user", e.userID, "scheduled_end", endAt)
	}
	return e.apply("resumed early", e.breaks.ResumeEarly)
}

// Stop closes the open entry now. Once the store has accepted the end the
// entry is final; if it refuses, the session is left running.
func (e *Engine) Stop() (models.TimeEntry, error) {
	return e.close("stopped", e.session.Stop)
}

// Cancel closes the open entry as cancelled so no totals include it.
func (e *Engine) Cancel() (models.TimeEntry, error) {
	return e.close("cancelled", e.session.Cancel)
}

func (e *Engine) close(action string, closeFn func() (models.TimeEntry, error)) (models.TimeEntry, error) {
	cp := e.checkpoint()
	closed, err := closeFn()
	if err != nil {
		return models.TimeEntry{}, err
	}
	e.breaks.Cancel()

	stored, err := e.store.UpdateEntry(closed.ID, models.EntryPatch{
		End:          closed.End,
		BreakMinutes: &closed.BreakMinutes,
		Status:       &closed.Status,
	})
	if err != nil {
		logger.Error("Closing entry failed", "action", action, "user", e.userID, "entry", closed.ID, "error", err)
		if uerr := e.session.Undo(cp.state); uerr != nil {
			e.rollback(cp)
		} else {
			e.breaks.Restore(cp.breakEnd)
		}
		return models.TimeEntry{}, err
	}
	if err := e.store.ClearSessionState(e.userID); err != nil {
		logger.Warn("Failed to clear session state", "user", e.userID, "error", err)
	}
	logger.Info("Session "+action, "user", e.userID, "entry", stored.ID, "elapsed_seconds", e.session.ElapsedSeconds())
	return stored, nil
}

// ScheduleFor starts a break of minutes, pausing the session if needed,
// and returns when it ends.
func (e *Engine) ScheduleFor(minutes int) (time.Time, error) {
	var endAt time.Time
	err := e.apply("break scheduled", func() error {
		var err error
		endAt, err = e.breaks.ScheduleFor(minutes)
		return err
	})
	return endAt, err
}

// ScheduleUntil starts a break lasting until the next HH:MM.
func (e *Engine) ScheduleUntil(clockTime string) (time.Time, error) {
	var endAt time.Time
	err := e.apply("break scheduled", func() error {
		var err error
		endAt, err = e.breaks.ScheduleUntil(clockTime)
		return err
	})
	return endAt, err
}

// CancelBreak drops the scheduled break and leaves the session paused. It
// reports whether a break was scheduled.
func (e *Engine) CancelBreak() (bool, error) {
	if !e.breaks.Active() {
		return false, nil
	}
	cp := e.checkpoint()
	e.breaks.Cancel()
	if err := e.store.SaveSessionState(e.snapshot()); err != nil {
		e.rollback(cp)
		return false, err
	}
	logger.Info("Break cancelled", "user", e.userID)
	return true, nil
}

// Tick advances the break countdown. When a break has run out the session
// resumes at the scheduled end, the change is persisted and the notifier
// is called. It reports whether this tick resumed the session.
func (e *Engine) Tick() (bool, error) {
	endAt, _ := e.breaks.EndAt()
	resumed, err := e.breaks.Tick()
	if err != nil || !resumed {
		return resumed, err
	}

	// the resume happened and is replayable from the stored break end, so a
	// failed write is logged rather than undone
	if err := e.commit(); err != nil {
		logger.Error("Persisting automatic resume failed", "user", e.userID, "error", err)
	}
	logger.Info("Break ended, session resumed", "user", e.userID, "entry", e.session.Entry().ID, "break_end", endAt)

	if e.notifier != nil {
		if err := e.notifier.BreakEnded(endAt); err != nil {
			logger.Debug("Break notification not delivered", "error", err)
		}
	}
	return true, nil
}
