package session

import (
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/daylog/internal/clock"
	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newStarted(t *testing.T) (*Session, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(base)
	s := New(clk)
	if _, err := s.Start(models.EntryDraft{UserID: "u1", Project: "alpha"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s, clk
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{Active, "active"},
		{Paused, "paused"},
		{State(9), "state(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestStartSetsActiveEntry(t *testing.T) {
	s, _ := newStarted(t)

	if s.State() != Active {
		t.Fatalf("State() = %v, want active", s.State())
	}
	e := s.Entry()
	if !e.Start.Equal(base) {
		t.Errorf("Start = %v, want %v", e.Start, base)
	}
	if e.End != nil {
		t.Errorf("End = %v, want nil", e.End)
	}
	if e.Status != constants.StatusActive {
		t.Errorf("Status = %q, want active", e.Status)
	}
	if e.Project != "alpha" {
		t.Errorf("Project = %q, want alpha", e.Project)
	}
}

func TestStartTwiceFails(t *testing.T) {
	s, _ := newStarted(t)

	_, err := s.Start(models.EntryDraft{})
	var invalid *derrors.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("Start() error = %v, want InvalidStateError", err)
	}
	if invalid.Benign {
		t.Error("starting twice should not be benign")
	}
}

func TestTransitionsFromIdle(t *testing.T) {
	s := New(clock.NewManual(base))

	if err := s.Pause(); !errors.Is(err, derrors.NewInvalidState("pause", "idle")) {
		t.Errorf("Pause() error = %v", err)
	}
	if err := s.Resume(); !errors.Is(err, derrors.NewInvalidState("resume", "idle")) {
		t.Errorf("Resume() error = %v", err)
	}
	if _, err := s.Stop(); !errors.Is(err, derrors.NewInvalidState("stop", "idle")) {
		t.Errorf("Stop() error = %v", err)
	}
	if got := s.ElapsedSeconds(); got != 0 {
		t.Errorf("ElapsedSeconds() = %d, want 0", got)
	}
}

func TestBenignRepeats(t *testing.T) {
	s, clk := newStarted(t)

	if err := s.Resume(); !errors.Is(err, derrors.ErrNotPaused) {
		t.Errorf("Resume() while active error = %v, want ErrNotPaused", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	clk.Advance(time.Minute)
	if err := s.Pause(); !errors.Is(err, derrors.ErrAlreadyPaused) {
		t.Errorf("Pause() while paused error = %v, want ErrAlreadyPaused", err)
	}
	// the second pause must not move the pause start
	at, ok := s.PausedAt()
	if !ok || !at.Equal(base) {
		t.Errorf("PausedAt() = %v, %v, want %v", at, ok, base)
	}
}

func TestElapsedFrozenWhilePaused(t *testing.T) {
	s, clk := newStarted(t)

	clk.Advance(30 * time.Minute)
	if err := s.Pause(); err != nil {
		t.Fatal(err)
	}
	before := s.ElapsedSeconds()
	clk.Advance(10 * time.Minute)
	if got := s.ElapsedSeconds(); got != before {
		t.Errorf("ElapsedSeconds() moved while paused: %d -> %d", before, got)
	}
	if before != 30*60 {
		t.Errorf("ElapsedSeconds() = %d, want %d", before, 30*60)
	}
	if got := s.PausedSeconds(); got != 10*60 {
		t.Errorf("PausedSeconds() = %d, want %d", got, 10*60)
	}
}

func TestElapsedMonotonicWhileActive(t *testing.T) {
	s, clk := newStarted(t)

	var last int64
	for i := 0; i < 10; i++ {
		clk.Advance(7 * time.Second)
		got := s.ElapsedSeconds()
		if got < last {
			t.Fatalf("ElapsedSeconds() decreased: %d -> %d", last, got)
		}
		last = got
	}
	if last != 70 {
		t.Errorf("ElapsedSeconds() = %d, want 70", last)
	}
}

func TestStopExcludesAllPauses(t *testing.T) {
	tests := []struct {
		name   string
		cycles []struct{ work, pause time.Duration }
		tail   time.Duration
	}{
		{name: "no pauses", tail: 2 * time.Hour},
		{
			name: "one pause",
			cycles: []struct{ work, pause time.Duration }{
				{90 * time.Minute, 15 * time.Minute},
			},
			tail: 45 * time.Minute,
		},
		{
			name: "many uneven pauses",
			cycles: []struct{ work, pause time.Duration }{
				{17 * time.Second, 43 * time.Second},
				{59 * time.Minute, 61 * time.Second},
				{3 * time.Second, 2 * time.Hour},
			},
			tail: 11 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clk := newStarted(t)
			var paused time.Duration
			for _, c := range tt.cycles {
				clk.Advance(c.work)
				if err := s.Pause(); err != nil {
					t.Fatal(err)
				}
				clk.Advance(c.pause)
				paused += c.pause
				if err := s.Resume(); err != nil {
					t.Fatal(err)
				}
			}
			stopAt := clk.Advance(tt.tail)

			entry, err := s.Stop()
			if err != nil {
				t.Fatalf("Stop() error = %v", err)
			}
			want := int64((stopAt.Sub(base) - paused) / time.Second)
			if got := s.ElapsedSeconds(); got != want {
				t.Errorf("ElapsedSeconds() after stop = %d, want %d", got, want)
			}
			if s.State() != Idle {
				t.Errorf("State() = %v, want idle", s.State())
			}
			if entry.End == nil || !entry.End.Equal(stopAt) {
				t.Errorf("End = %v, want %v", entry.End, stopAt)
			}
			if entry.Status != constants.StatusCompleted {
				t.Errorf("Status = %q, want completed", entry.Status)
			}
			if err := entry.Validate(); err != nil {
				t.Errorf("stopped entry invalid: %v", err)
			}
		})
	}
}

func TestStopWhilePausedCountsTrailingPauseAsBreak(t *testing.T) {
	s, clk := newStarted(t)

	clk.Advance(2 * time.Hour)
	if err := s.Pause(); err != nil {
		t.Fatal(err)
	}
	clk.Advance(20 * time.Minute)

	entry, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if entry.BreakMinutes != 20 {
		t.Errorf("BreakMinutes = %d, want 20", entry.BreakMinutes)
	}
	if got := s.ElapsedSeconds(); got != 2*60*60 {
		t.Errorf("ElapsedSeconds() = %d, want %d", got, 2*60*60)
	}
}

func TestBreakMinutesRoundUpAndClampToSpan(t *testing.T) {
	s, clk := newStarted(t)

	if err := s.Pause(); err != nil {
		t.Fatal(err)
	}
	clk.Advance(30 * time.Second)

	entry, err := s.Stop()
	if err != nil {
		t.Fatal(err)
	}
	// 30s of pause rounds to one minute but the span is only 30s
	if entry.BreakMinutes != 0 {
		t.Errorf("BreakMinutes = %d, want 0", entry.BreakMinutes)
	}
	if err := entry.Validate(); err != nil {
		t.Errorf("entry invalid: %v", err)
	}
}

func TestManualBreakAddsToPauses(t *testing.T) {
	s, clk := newStarted(t)
	if err := s.SetManualBreak(10); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Hour)
	_ = s.Pause()
	clk.Advance(90 * time.Second)
	_ = s.Resume()
	clk.Advance(time.Hour)

	entry, err := s.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if entry.BreakMinutes != 12 {
		t.Errorf("BreakMinutes = %d, want 12", entry.BreakMinutes)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s, clk := newStarted(t)
	entry := s.Entry()
	entry.ID = "e1"
	if err := s.Bind(entry); err != nil {
		t.Fatal(err)
	}

	clk.Advance(40 * time.Minute)
	_ = s.Pause()
	clk.Advance(5 * time.Minute)
	_ = s.Resume()
	clk.Advance(20 * time.Minute)
	_ = s.Pause()
	clk.Advance(3 * time.Minute)

	restored, err := Restore(clk, s.Entry(), s.Snapshot())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.State() != Paused {
		t.Errorf("State() = %v, want paused", restored.State())
	}
	if got, want := restored.ElapsedSeconds(), s.ElapsedSeconds(); got != want {
		t.Errorf("restored ElapsedSeconds() = %d, want %d", got, want)
	}
	if got, want := restored.PausedSeconds(), s.PausedSeconds(); got != want {
		t.Errorf("restored PausedSeconds() = %d, want %d", got, want)
	}
	if restored.ManualBreakMinutes() != 0 {
		t.Errorf("ManualBreakMinutes() = %d, want 0", restored.ManualBreakMinutes())
	}
}

func TestRestoreRejectsMismatch(t *testing.T) {
	clk := clock.NewManual(base)
	end := base.Add(time.Hour)
	open := models.TimeEntry{ID: "e1", Start: base, Status: constants.StatusActive}

	tests := []struct {
		name  string
		entry models.TimeEntry
		state models.SessionState
	}{
		{"closed entry", models.TimeEntry{ID: "e1", Start: base, End: &end}, models.SessionState{}},
		{"other entry", open, models.SessionState{EntryID: "e2"}},
		{"negative pause", open, models.SessionState{EntryID: "e1", PausedSeconds: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Restore(clk, tt.entry, tt.state); err == nil {
				t.Error("Restore() expected error")
			}
		})
	}
}

func TestUndoReopensStoppedSession(t *testing.T) {
	s, clk := newStarted(t)
	clk.Advance(time.Hour)
	_ = s.Pause()
	clk.Advance(10 * time.Minute)
	prev := s.Snapshot()
	before := s.ElapsedSeconds()

	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Undo(prev); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if s.State() != Paused {
		t.Errorf("State() = %v, want paused", s.State())
	}
	if s.Entry().End != nil {
		t.Error("End should be cleared after undo")
	}
	if got := s.ElapsedSeconds(); got != before {
		t.Errorf("ElapsedSeconds() = %d, want %d", got, before)
	}
}

func TestCancelMarksCancelled(t *testing.T) {
	s, clk := newStarted(t)
	clk.Advance(5 * time.Minute)

	entry, err := s.Cancel()
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != constants.StatusCancelled {
		t.Errorf("Status = %q, want cancelled", entry.Status)
	}
}

func TestAnnotateKeepsTimes(t *testing.T) {
	s, clk := newStarted(t)
	clk.Advance(time.Minute)
	note := "standup"
	later := base.Add(time.Hour)

	if err := s.Annotate(models.EntryPatch{Note: &note, Start: &later}); err != nil {
		t.Fatal(err)
	}
	e := s.Entry()
	if e.Note != "standup" {
		t.Errorf("Note = %q", e.Note)
	}
	if !e.Start.Equal(base) {
		t.Errorf("Start changed to %v", e.Start)
	}
}

func TestResumeAtClamps(t *testing.T) {
	s, clk := newStarted(t)
	clk.Advance(time.Hour)
	_ = s.Pause()
	clk.Advance(30 * time.Minute)

	// a resume point before the pause began credits nothing
	if err := s.ResumeAt(base); err != nil {
		t.Fatal(err)
	}
	if got := s.PausedSeconds(); got != 0 {
		t.Errorf("PausedSeconds() = %d, want 0", got)
	}

	_ = s.Pause()
	clk.Advance(10 * time.Minute)
	// a resume point in the future is capped at now
	if err := s.ResumeAt(clk.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if got := s.PausedSeconds(); got != 10*60 {
		t.Errorf("PausedSeconds() = %d, want %d", got, 10*60)
	}
}
