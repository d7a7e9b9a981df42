package system

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/config"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage/sqlite"
)

func newContext(t *testing.T, dbPath string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	t.Cleanup(func() { store.Close() })
	var out bytes.Buffer
	return &cli.Context{
		Store:  store,
		Config: config.Config{DB: dbPath, User: "ada"},
		Out:    &out,
	}, &out
}

func TestInitCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "daylog.db")
	ctx, out := newContext(t, dbPath)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database not created: %v", err)
	}
	if !strings.Contains(out.String(), "Initialized daylog storage at: "+dbPath) {
		t.Errorf("output = %q", out.String())
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.WeeklyTargetMin != 2400 {
		t.Errorf("default weekly target = %d", settings.WeeklyTargetMin)
	}
}

func TestInitCmdForceResets(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "daylog.db")
	ctx, out := newContext(t, dbPath)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if _, err := ctx.Store.CreateEntry(models.EntryDraft{UserID: "ada", Start: end.Add(-time.Hour), End: &end}); err != nil {
		t.Fatal(err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted existing database") {
		t.Errorf("output = %q", out.String())
	}
	entries, err := ctx.Store.ListEntries(models.EntryFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("entries after reset = %d, want 0", len(entries))
	}
}

func TestInitCmdForceRefusesSameSource(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "daylog.db")
	ctx, _ := newContext(t, dbPath)
	if err := (&InitCmd{Force: true, Source: dbPath}).Run(ctx); err == nil {
		t.Error("init --force with the destination as source should fail")
	}
}

func TestInitCmdMigratesSource(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "old.db")
	src := sqlite.NewStore(srcPath)
	if err := src.Init(); err != nil {
		t.Fatal(err)
	}
	settings, _ := src.GetSettings()
	settings.WeeklyTargetMin = 1800
	if err := src.SaveSettings(settings); err != nil {
		t.Fatal(err)
	}
	day := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		start := day.AddDate(0, 0, i)
		end := start.Add(8 * time.Hour)
		e, err := src.CreateEntry(models.EntryDraft{UserID: "ada", Start: start, End: &end, Project: "alpha"})
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			if err := src.ArchiveEntry(e.ID); err != nil {
				t.Fatal(err)
			}
		}
	}
	src.Close()

	ctx, out := newContext(t, filepath.Join(dir, "new.db"))
	if err := (&InitCmd{Source: srcPath}).Run(ctx); err != nil {
		t.Fatalf("init --source failed: %v", err)
	}
	if !strings.Contains(out.String(), "Migrated 3 entries") {
		t.Errorf("output = %q", out.String())
	}

	got, _ := ctx.Store.GetSettings()
	if got.WeeklyTargetMin != 1800 {
		t.Errorf("weekly target = %d, want 1800", got.WeeklyTargetMin)
	}
	entries, err := ctx.Store.ListEntries(models.EntryFilter{UserID: "ada"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if !entries[0].IsArchived() || entries[1].IsArchived() {
		t.Errorf("archive state not carried over: %v %v", entries[0].ArchivedAt, entries[1].ArchivedAt)
	}
}

func TestMigrateCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "daylog.db")
	ctx, out := newContext(t, dbPath)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out.String(), "Database is up to date") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDebugCmds(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "daylog.db")
	ctx, out := newContext(t, dbPath)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&DebugDBPathCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	var paths map[string]string
	if err := json.Unmarshal(out.Bytes(), &paths); err != nil {
		t.Fatalf("db-path output is not JSON: %v", err)
	}
	if paths["path"] != dbPath || paths["backend"] != "sqlite" {
		t.Errorf("db-path = %v", paths)
	}

	if err := (&DebugDumpEntryCmd{ID: "missing"}).Run(ctx); err == nil || !strings.Contains(err.Error(), "entry not found") {
		t.Errorf("dump-entry(missing) error = %v", err)
	}
	if err := (&DebugDumpSessionCmd{}).Run(ctx); err == nil {
		t.Error("dump-session with no session should fail")
	}

	out.Reset()
	if err := (&DebugDumpSettingsCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"weekly_target_min": 2400`) {
		t.Errorf("settings dump = %s", out.String())
	}
}
