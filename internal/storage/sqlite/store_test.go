package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
)

var day = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "daylog.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func closedDraft(user string, start time.Time, d time.Duration) models.EntryDraft {
	end := start.Add(d)
	return models.EntryDraft{UserID: user, Start: start, End: &end}
}

var _ storage.Provider = (*Store)(nil)

func TestInitWritesDefaultSettings(t *testing.T) {
	store := setupStore(t)

	got, err := store.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if got != models.DefaultSettings() {
		t.Errorf("GetSettings() = %+v, want %+v", got, models.DefaultSettings())
	}

	got.WeeklyTargetMin = 1800
	got.WeekStart = time.Sunday
	if err := store.SaveSettings(got); err != nil {
		t.Fatal(err)
	}
	// a second Init keeps saved values
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	again, _ := store.GetSettings()
	if again.WeeklyTargetMin != 1800 || again.WeekStart != time.Sunday {
		t.Errorf("settings after re-init = %+v", again)
	}
}

func TestSaveSettingsValidates(t *testing.T) {
	store := setupStore(t)
	bad := models.DefaultSettings()
	bad.TimelineStartHour, bad.TimelineEndHour = 18, 8
	if err := store.SaveSettings(bad); err == nil {
		t.Error("SaveSettings() expected error")
	}
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(); err == nil {
		t.Error("Load() expected error for missing database")
	}
}

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daylog.db")
	first := NewStore(path)
	if err := first.Init(); err != nil {
		t.Fatal(err)
	}
	created, err := first.CreateEntry(closedDraft("u1", day, time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := NewStore(path)
	if err := second.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer second.Close()
	got, err := second.GetEntry(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Start.Equal(day) || got.End == nil || !got.End.Equal(day.Add(time.Hour)) {
		t.Errorf("round trip = %+v", got)
	}
}

func TestCreateEntry(t *testing.T) {
	store := setupStore(t)

	open, err := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day, Project: "alpha"})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	if open.ID == "" || open.Status != constants.StatusActive {
		t.Errorf("open entry = %+v", open)
	}

	closed, err := store.CreateEntry(closedDraft("u1", day.Add(-3*time.Hour), time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if closed.Status != constants.StatusCompleted {
		t.Errorf("Status = %q, want completed", closed.Status)
	}

	got, err := store.GetOpenEntry("u1")
	if err != nil || got.ID != open.ID || got.Project != "alpha" {
		t.Errorf("GetOpenEntry() = %+v, %v", got, err)
	}
	if _, err := store.GetOpenEntry("u2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetOpenEntry(u2) error = %v, want ErrNotFound", err)
	}
}

func TestCreateEntryRejectsInvalid(t *testing.T) {
	store := setupStore(t)
	end := day.Add(-time.Minute)

	_, err := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day, End: &end})
	var verr *derrors.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("CreateEntry() error = %v, want ValidationError", err)
	}

	d := closedDraft("u1", day, 30*time.Minute)
	d.BreakMinutes = 31
	if _, err := store.CreateEntry(d); !errors.As(err, &verr) {
		t.Errorf("CreateEntry() with long break error = %v, want ValidationError", err)
	}
}

func TestSecondOpenEntryConflicts(t *testing.T) {
	store := setupStore(t)
	if _, err := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day}); err != nil {
		t.Fatal(err)
	}

	_, err := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day.Add(time.Minute)})
	var conflict *derrors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("CreateEntry() error = %v, want ConflictError", err)
	}

	// another user is unaffected
	if _, err := store.CreateEntry(models.EntryDraft{UserID: "u2", Start: day}); err != nil {
		t.Errorf("CreateEntry(u2) error = %v", err)
	}
}

func TestUniqueIndexMapsToConflict(t *testing.T) {
	store := setupStore(t)
	if _, err := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day}); err != nil {
		t.Fatal(err)
	}
	_, err := store.GetDB().Exec(`INSERT INTO time_entries (id, user_id, start_at, status, created_at, updated_at)
		VALUES ('raw', 'u1', 'x', 'active', 'x', 'x')`)
	if !isUniqueViolation(err) {
		t.Errorf("raw insert error = %v, want unique violation", err)
	}
}

func TestDuplicateClosedEntryConflicts(t *testing.T) {
	store := setupStore(t)
	if _, err := store.CreateEntry(closedDraft("u1", day, time.Hour)); err != nil {
		t.Fatal(err)
	}
	_, err := store.CreateEntry(closedDraft("u1", day, time.Hour))
	var conflict *derrors.ConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("CreateEntry() error = %v, want ConflictError", err)
	}
}

func TestUpdateEntry(t *testing.T) {
	store := setupStore(t)
	e, err := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day})
	if err != nil {
		t.Fatal(err)
	}

	end := day.Add(2 * time.Hour)
	brk := 15
	status := constants.StatusCompleted
	note := "done"
	got, err := store.UpdateEntry(e.ID, models.EntryPatch{End: &end, BreakMinutes: &brk, Status: &status, Note: &note})
	if err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	if got.End == nil || !got.End.Equal(end) || got.BreakMinutes != 15 || got.Note != "done" {
		t.Errorf("UpdateEntry() = %+v", got)
	}

	stored, _ := store.GetEntry(e.ID)
	if stored.Status != constants.StatusCompleted {
		t.Errorf("stored Status = %q", stored.Status)
	}
	if _, err := store.GetOpenEntry("u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetOpenEntry() error = %v, want ErrNotFound", err)
	}

	tooLong := 500
	if _, err := store.UpdateEntry(e.ID, models.EntryPatch{BreakMinutes: &tooLong}); err == nil {
		t.Error("UpdateEntry() with long break expected error")
	}
	if _, err := store.UpdateEntry("missing", models.EntryPatch{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateEntry(missing) error = %v, want ErrNotFound", err)
	}
}

func TestArchivedEntriesAreImmutable(t *testing.T) {
	store := setupStore(t)
	open, _ := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day})
	if err := store.ArchiveEntry(open.ID); err == nil {
		t.Error("ArchiveEntry() on open entry expected error")
	}

	e, err := store.CreateEntry(closedDraft("u1", day.Add(-2*time.Hour), time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.ArchiveEntry(e.ID); err != nil {
		t.Fatalf("ArchiveEntry() error = %v", err)
	}
	if err := store.ArchiveEntry(e.ID); err != nil {
		t.Errorf("second ArchiveEntry() error = %v", err)
	}

	note := "late edit"
	var invalid *derrors.InvalidStateError
	if _, err := store.UpdateEntry(e.ID, models.EntryPatch{Note: &note}); !errors.As(err, &invalid) {
		t.Errorf("UpdateEntry() on archived error = %v, want InvalidStateError", err)
	}
	if err := store.DeleteEntry(e.ID); !errors.As(err, &invalid) {
		t.Errorf("DeleteEntry() on archived error = %v, want InvalidStateError", err)
	}
}

func TestDeleteAndRestore(t *testing.T) {
	store := setupStore(t)
	e, _ := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day})
	if err := store.SaveSessionState(models.SessionState{UserID: "u1", EntryID: e.ID}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteEntry(e.ID); err != nil {
		t.Fatalf("DeleteEntry() error = %v", err)
	}
	if _, err := store.GetEntry(e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetEntry() after delete error = %v", err)
	}
	if _, err := store.GetSessionState("u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("session state survived delete: %v", err)
	}
	all, _ := store.ListEntries(models.EntryFilter{UserID: "u1", IncludeDeleted: true})
	if len(all) != 1 || all[0].DeletedAt == nil {
		t.Errorf("ListEntries(IncludeDeleted) = %+v", all)
	}

	// a new open entry blocks restoring the deleted one
	if _, err := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	var conflict *derrors.ConflictError
	if err := store.RestoreEntry(e.ID); !errors.As(err, &conflict) {
		t.Errorf("RestoreEntry() error = %v, want ConflictError", err)
	}
	if err := store.RestoreEntry("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RestoreEntry(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListEntriesFilters(t *testing.T) {
	store := setupStore(t)
	for i := 0; i < 5; i++ {
		if _, err := store.CreateEntry(closedDraft("u1", day.AddDate(0, 0, i), time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.CreateEntry(closedDraft("u2", day, time.Hour)); err != nil {
		t.Fatal(err)
	}
	open, _ := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day.AddDate(0, 0, 5)})

	tests := []struct {
		name   string
		filter models.EntryFilter
		want   int
	}{
		{"all users", models.EntryFilter{}, 7},
		{"one user", models.EntryFilter{UserID: "u1"}, 6},
		{"range", models.EntryFilter{UserID: "u1", From: day.AddDate(0, 0, 1), To: day.AddDate(0, 0, 3)}, 2},
		{"open only", models.EntryFilter{UserID: "u1", OpenOnly: true}, 1},
		{"status", models.EntryFilter{Statuses: []constants.EntryStatus{constants.StatusActive}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListEntries(tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Start.Before(got[i-1].Start) {
					t.Error("entries not ordered by start")
				}
			}
		})
	}
	if got, _ := store.ListEntries(models.EntryFilter{OpenOnly: true}); len(got) != 1 || got[0].ID != open.ID {
		t.Errorf("open entries = %+v", got)
	}
}

func TestSessionStateRoundTrip(t *testing.T) {
	store := setupStore(t)
	e, _ := store.CreateEntry(models.EntryDraft{UserID: "u1", Start: day})

	if _, err := store.GetSessionState("u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetSessionState() error = %v, want ErrNotFound", err)
	}

	pausedAt := day.Add(time.Hour)
	breakEnd := pausedAt.Add(15 * time.Minute)
	st := models.SessionState{UserID: "u1", EntryID: e.ID, PausedAt: &pausedAt, PausedSeconds: 125, BreakEndAt: &breakEnd}
	if err := store.SaveSessionState(st); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetSessionState("u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.EntryID != e.ID || got.PausedSeconds != 125 || !got.PausedAt.Equal(pausedAt) || !got.BreakEndAt.Equal(breakEnd) {
		t.Errorf("GetSessionState() = %+v", got)
	}

	st.PausedAt, st.BreakEndAt, st.PausedSeconds = nil, nil, 300
	if err := store.SaveSessionState(st); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetSessionState("u1")
	if got.PausedAt != nil || got.BreakEndAt != nil || got.PausedSeconds != 300 {
		t.Errorf("after overwrite = %+v", got)
	}

	if err := store.ClearSessionState("u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSessionState("u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetSessionState() after clear error = %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupStore(t)
	n, err := store.Migrate(nil)
	if err != nil || n != 0 {
		t.Errorf("Migrate() = %d, %v, want 0, nil", n, err)
	}
}
