package system

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/storage"
)

type DebugCmd struct {
	DBPath       *DebugDBPathCmd       `cmd:"" help:"Show database path."`
	Config       *DebugConfigCmd       `cmd:"" help:"Show the resolved configuration."`
	DumpEntry    *DebugDumpEntryCmd    `cmd:"" help:"Dump an entry as JSON."`
	DumpSession  *DebugDumpSessionCmd  `cmd:"" help:"Dump the stored session state as JSON."`
	DumpSettings *DebugDumpSettingsCmd `cmd:"" help:"Dump settings as JSON."`
}

func printJSON(ctx *cli.Context, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx, map[string]string{
		"path":    maskPassword(ctx.Store.GetConfigPath()),
		"backend": ctx.Config.Backend().String(),
	})
}

type DebugConfigCmd struct{}

func (cmd *DebugConfigCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx, map[string]any{
		"db":         maskPassword(ctx.Config.DB),
		"user":       ctx.Config.User,
		"log_level":  ctx.Config.LogLevel,
		"listen":     ctx.Config.Listen,
		"dev_mode":   ctx.Config.DevMode,
		"config_dir": ctx.Config.ConfigDir,
	})
}

type DebugDumpEntryCmd struct {
	ID string `arg:"" help:"ID of the entry to dump."`
}

func (cmd *DebugDumpEntryCmd) Run(ctx *cli.Context) error {
	entry, err := ctx.Store.GetEntry(cmd.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("entry not found: %s", cmd.ID)
		}
		return fmt.Errorf("failed to get entry: %w", err)
	}
	return printJSON(ctx, entry)
}

type DebugDumpSessionCmd struct{}

func (cmd *DebugDumpSessionCmd) Run(ctx *cli.Context) error {
	state, err := ctx.Store.GetSessionState(ctx.Config.User)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no session state stored for %s", ctx.Config.User)
		}
		return fmt.Errorf("failed to get session state: %w", err)
	}
	return printJSON(ctx, state)
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return printJSON(ctx, settings)
}
