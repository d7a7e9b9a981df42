package entries

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/clock"
	"github.com/julianstephens/daylog/internal/config"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	settings.Timezone = "UTC"
	if err := store.SaveSettings(settings); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	return &cli.Context{
		Store:  store,
		Config: config.Config{User: "ada"},
		Out:    &out,
		Clock:  clock.NewManual(time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)),
	}, &out
}

func addEntry(t *testing.T, ctx *cli.Context, out *bytes.Buffer, cmd EntryAddCmd) models.TimeEntry {
	t.Helper()
	out.Reset()
	ctx.Format = cli.FormatJSON
	defer func() { ctx.Format = cli.FormatText }()
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	var entry models.TimeEntry
	if err := json.Unmarshal(out.Bytes(), &entry); err != nil {
		t.Fatalf("add output is not JSON: %v", err)
	}
	return entry
}

func TestEntryAddCmd(t *testing.T) {
	tests := []struct {
		name    string
		cmd     EntryAddCmd
		wantErr bool
	}{
		{name: "valid", cmd: EntryAddCmd{Date: "2026-03-02", Start: "08:00", End: "12:00", Break: 15, Project: "alpha"}},
		{name: "yesterday", cmd: EntryAddCmd{Date: "yesterday", Start: "13:00", End: "14:00"}},
		{name: "end before start", cmd: EntryAddCmd{Date: "today", Start: "12:00", End: "08:00"}, wantErr: true},
		{name: "bad time", cmd: EntryAddCmd{Date: "today", Start: "8am", End: "12:00"}, wantErr: true},
		{name: "bad date", cmd: EntryAddCmd{Date: "02.03.2026", Start: "08:00", End: "12:00"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestDB(t)
			err := tt.cmd.Run(ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEntryLifecycle(t *testing.T) {
	ctx, out := setupTestDB(t)
	entry := addEntry(t, ctx, out, EntryAddCmd{Date: "2026-03-02", Start: "08:00", End: "12:00", Project: "alpha"})
	if want := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC); !entry.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", entry.Start, want)
	}

	end := "12:30"
	brk := 20
	out.Reset()
	if err := (&EntryEditCmd{ID: entry.ID, End: &end, Break: &brk}).Run(ctx); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	edited, err := ctx.Store.GetEntry(entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if edited.End == nil || edited.End.Hour() != 12 || edited.End.Minute() != 30 || edited.BreakMinutes != 20 {
		t.Errorf("edited entry = %+v", edited)
	}

	out.Reset()
	if err := (&EntryListCmd{ShowIDs: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[completed] 2026-03-02 08:00-12:30 4:10, 20m break (ID: "+entry.ID+")") {
		t.Errorf("list output:\n%s", out.String())
	}

	if err := (&EntryDeleteCmd{ID: entry.ID}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	out.Reset()
	if err := (&EntryListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No entries found") {
		t.Errorf("list after delete:\n%s", out.String())
	}
	out.Reset()
	if err := (&EntryListCmd{Deleted: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "deleted") {
		t.Errorf("deleted list:\n%s", out.String())
	}

	if err := (&EntryRestoreCmd{ID: entry.ID}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if err := (&EntryArchiveCmd{ID: entry.ID}).Run(ctx); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	note := "late edit"
	if err := (&EntryEditCmd{ID: entry.ID, Note: &note}).Run(ctx); err == nil {
		t.Error("editing an archived entry should fail")
	}
}

func TestEntryEditUnknownID(t *testing.T) {
	ctx, _ := setupTestDB(t)
	brk := 5
	if err := (&EntryEditCmd{ID: "missing", Break: &brk}).Run(ctx); err == nil {
		t.Error("editing a missing entry should fail")
	}
}
