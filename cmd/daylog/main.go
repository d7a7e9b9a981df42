package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/cli/breaks"
	"github.com/julianstephens/daylog/internal/cli/entries"
	"github.com/julianstephens/daylog/internal/cli/imports"
	"github.com/julianstephens/daylog/internal/cli/reports"
	"github.com/julianstephens/daylog/internal/cli/settings"
	"github.com/julianstephens/daylog/internal/cli/system"
	"github.com/julianstephens/daylog/internal/cli/tracking"
	"github.com/julianstephens/daylog/internal/config"
	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/keyring"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/notifier"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/storage/postgres"
	"github.com/julianstephens/daylog/internal/storage/sqlite"
)

var CLI struct {
	Version kong.VersionFlag
	Format  string `help:"Output format." enum:"text,json,yaml" default:"text" short:"f"`

	Start  tracking.StartCmd  `cmd:"" help:"Start tracking a new entry."`
	Pause  tracking.PauseCmd  `cmd:"" help:"Pause the running entry."`
	Resume tracking.ResumeCmd `cmd:"" help:"Resume a paused entry."`
	Stop   tracking.StopCmd   `cmd:"" help:"Stop and record the running entry."`
	Cancel tracking.CancelCmd `cmd:"" help:"Discard the running entry."`
	Status tracking.StatusCmd `cmd:"" help:"Show the tracking status."`

	Break struct {
		Start  breaks.BreakStartCmd  `cmd:"" default:"withargs" help:"Pause now and schedule the resume."`
		Cancel breaks.BreakCancelCmd `cmd:"" help:"Drop the scheduled resume and stay paused."`
		End    breaks.BreakEndCmd    `cmd:"" help:"End the break early and resume."`
	} `cmd:"" help:"Manage breaks."`

	Day      reports.DayCmd      `cmd:"" help:"Show the entries and totals of a day."`
	Week     reports.WeekCmd     `cmd:"" help:"Show the week against the weekly target."`
	Timeline reports.TimelineCmd `cmd:"" help:"Lay out a day as a timeline."`
	Summary  reports.SummaryCmd  `cmd:"" help:"Summarize worked time by project and location."`

	Entry struct {
		Add     entries.EntryAddCmd     `cmd:"" help:"Add a finished entry by hand."`
		Edit    entries.EntryEditCmd    `cmd:"" help:"Edit an entry."`
		Delete  entries.EntryDeleteCmd  `cmd:"" help:"Delete an entry."`
		Restore entries.EntryRestoreCmd `cmd:"" help:"Restore a deleted entry."`
		Archive entries.EntryArchiveCmd `cmd:"" help:"Archive an entry."`
		List    entries.EntryListCmd    `cmd:"" help:"List entries."`
	} `cmd:"" help:"Manage time entries."`

	Import   imports.ImportCmd   `cmd:"" help:"Import entries from a spreadsheet export."`
	Settings settings.SettingsCmd `cmd:"" help:"Show or change settings."`

	Init    system.InitCmd    `cmd:"" help:"Initialize daylog storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Apply pending database migrations."`
	Backup  system.BackupCmd  `cmd:"" help:"Create, list and restore SQLite backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check the OS keyring."`
	} `cmd:"" help:"Manage the connection string in the OS keyring."`
	Serve system.ServeCmd `cmd:"" help:"Serve the HTTP API."`
	Tui   system.TuiCmd   `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Debug system.DebugCmd `cmd:"" help:"Debugging and diagnostic commands." hidden:""`
}

func openStore(cfg config.Config) (storage.Provider, error) {
	target, err := cfg.ResolveDB(keyring.ConnString)
	if err != nil {
		return nil, err
	}
	if !config.IsPostgres(target) {
		return sqlite.NewStore(target), nil
	}
	err = postgres.ValidateConnString(target)
	// the keyring is encrypted, so only plain config must stay password-free
	if errors.Is(err, postgres.ErrEmbeddedCredentials) && cfg.DB == constants.KeyringDBSentinel {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return postgres.New(target), nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Work time tracker with breaks, weekly totals and timelines"),
		kong.UsageOnError(),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load()
	if err != nil {
		derrors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Debug: cfg.DevMode, ConfigDir: cfg.ConfigDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}

	appCtx := &cli.Context{
		Config:   cfg,
		Format:   cli.Format(CLI.Format),
		Notifier: notifier.New(),
	}

	command := ctx.Command()
	if !strings.HasPrefix(command, "keyring") {
		store, err := openStore(cfg)
		if err != nil {
			derrors.Fatal(err)
		}
		defer store.Close()
		if !strings.HasPrefix(command, "init") && !strings.HasPrefix(command, "migrate") {
			if err := store.Load(); err != nil {
				store.Close()
				derrors.Fatal(err)
			}
		}
		appCtx.Store = store
	}

	if err := ctx.Run(appCtx); err != nil {
		if appCtx.Store != nil {
			appCtx.Store.Close()
		}
		derrors.Fatal(err)
	}
}
