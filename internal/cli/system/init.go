package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/daylog/internal/backup"
	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/config"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/storage/postgres"
	"github.com/julianstephens/daylog/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting the existing SQLite database before initialization."`
	Source string `help:"Source database path or connection string to copy entries and settings from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized daylog storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		ctx.Printf("Migrating data from: %s\n", c.Source)
		if err := c.migrateData(ctx, c.Source); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Println("Migration completed successfully!")
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	if ctx.Config.Backend() == config.Postgres {
		return errors.New("--force only resets SQLite databases")
	}
	dbPath := ctx.Store.GetConfigPath()
	if c.Source != "" {
		absDB, err := filepath.Abs(dbPath)
		if err == nil {
			dbPath = absDB
		}
		absSource, err := filepath.Abs(c.Source)
		if err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}
	if _, err := os.Stat(dbPath); err == nil {
		if snap, err := backup.NewManager(dbPath).Create(); err != nil {
			logger.Warn("Failed to back up database before reset", "path", dbPath, "error", err)
		} else {
			ctx.Printf("Backed up existing database to: %s\n", snap)
		}
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		ctx.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

func openSource(source string) (storage.Provider, error) {
	if !config.IsPostgres(source) {
		return sqlite.NewStore(source), nil
	}
	if err := postgres.ValidateConnString(source); err != nil {
		if errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return nil, errors.New("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
		}
		return nil, err
	}
	return postgres.New(source), nil
}

// migrateData copies settings and every live entry. Entries get new IDs;
// archived entries are archived again in the destination.
func (c *InitCmd) migrateData(ctx *cli.Context, source string) error {
	src, err := openSource(source)
	if err != nil {
		return err
	}
	if err := src.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	ctx.Println("  Migrating settings...")
	settings, err := src.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	ctx.Println("  Migrating entries...")
	entries, err := src.ListEntries(models.EntryFilter{})
	if err != nil {
		return fmt.Errorf("failed to get entries from source: %w", err)
	}
	for _, e := range entries {
		created, err := ctx.Store.CreateEntry(models.EntryDraft{
			UserID:       e.UserID,
			Start:        e.Start,
			End:          e.End,
			BreakMinutes: e.BreakMinutes,
			Project:      e.Project,
			Location:     e.Location,
			Note:         e.Note,
			CostCenter:   e.CostCenter,
			Category:     e.Category,
			Status:       e.Status,
		})
		if err != nil {
			return fmt.Errorf("failed to add entry %s: %w", e.ID, err)
		}
		if e.IsArchived() {
			if err := ctx.Store.ArchiveEntry(created.ID); err != nil {
				return fmt.Errorf("failed to archive entry %s: %w", created.ID, err)
			}
		}
	}
	ctx.Printf("    Migrated %d entries\n", len(entries))
	return nil
}
