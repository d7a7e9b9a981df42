package system

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/daylog/internal/backup"
	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/config"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" default:"1" help:"Snapshot the database."`
	List    BackupListCmd    `cmd:"" help:"List snapshots, newest first."`
	Restore BackupRestoreCmd `cmd:"" help:"Replace the database with a snapshot."`
}

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if ctx.Config.Backend() == config.Postgres {
		return nil, errors.New("backups are only available for SQLite; use pg_dump for PostgreSQL")
	}
	return backup.NewManager(ctx.Store.GetConfigPath()), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return err
	}
	ctx.Printf("✓ Backup written to %s\n", path)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	return ctx.Render(backups, func(w io.Writer) error {
		if len(backups) == 0 {
			fmt.Fprintf(w, "No backups in %s\n", mgr.Dir())
			return nil
		}
		for _, b := range backups {
			fmt.Fprintf(w, "%s  %s  %s\n", b.TakenAt.Local().Format("2006-01-02 15:04:05"),
				humanize.Bytes(uint64(b.Size)), filepath.Base(b.Path))
		}
		return nil
	})
}

type BackupRestoreCmd struct {
	File string `arg:"" optional:"" help:"Snapshot to restore. Defaults to the newest."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path := c.File
	if path == "" {
		backups, err := mgr.List()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			return fmt.Errorf("no backups in %s", mgr.Dir())
		}
		path = backups[0].Path
	} else if filepath.Dir(path) == "." {
		path = filepath.Join(mgr.Dir(), path)
	}

	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	previous, err := mgr.Restore(path)
	if err != nil {
		return err
	}
	if previous != "" {
		ctx.Printf("Saved the replaced database as %s\n", filepath.Base(previous))
	}
	ctx.Printf("✓ Restored %s\n", filepath.Base(path))
	return nil
}
