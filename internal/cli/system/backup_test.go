package system

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/daylog/internal/config"
	"github.com/julianstephens/daylog/internal/models"
)

func TestBackupCreateListRestore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "daylog.db")
	ctx, out := newContext(t, dbPath)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Backup written to "+filepath.Join(filepath.Dir(dbPath), "backups")) {
		t.Errorf("create output = %q", out.String())
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "daylog-") {
		t.Errorf("list output = %q", out.String())
	}

	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if _, err := ctx.Store.CreateEntry(models.EntryDraft{UserID: "ada", Start: end.Add(-time.Hour), End: &end}); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&BackupRestoreCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "Saved the replaced database as") || !strings.Contains(out.String(), "✓ Restored daylog-") {
		t.Errorf("restore output = %q", out.String())
	}

	if err := ctx.Store.Load(); err != nil {
		t.Fatal(err)
	}
	entries, err := ctx.Store.ListEntries(models.EntryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("entries after restore = %d, want 0", len(entries))
	}
}

func TestBackupRejectsPostgres(t *testing.T) {
	ctx, _ := newContext(t, filepath.Join(t.TempDir(), "daylog.db"))
	ctx.Config = config.Config{DB: "postgres://db/daylog"}
	if err := (&BackupCreateCmd{}).Run(ctx); err == nil {
		t.Error("backup on PostgreSQL should fail")
	}
}

func TestBackupRestoreWithoutBackups(t *testing.T) {
	ctx, _ := newContext(t, filepath.Join(t.TempDir(), "daylog.db"))
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&BackupRestoreCmd{}).Run(ctx); err == nil || !strings.Contains(err.Error(), "no backups") {
		t.Errorf("restore without backups: %v", err)
	}
}
