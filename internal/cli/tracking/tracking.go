package tracking

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/engine"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/session"
)

type StartCmd struct {
	Project    string `help:"Project the time is booked on." short:"p"`
	Location   string `help:"Where the work happens (e.g. office, home_office)." short:"l"`
	Note       string `help:"Free-form note." short:"n"`
	CostCenter string `help:"Cost centre for billing." name:"cost-center"`
}

func (c *StartCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	entry, err := eng.Start(models.EntryDraft{
		Project:    c.Project,
		Location:   c.Location,
		Note:       c.Note,
		CostCenter: c.CostCenter,
	})
	if err != nil {
		return err
	}
	return ctx.Render(entry, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Tracking since %s\n", entry.Start.In(eng.Location()).Format("15:04"))
		return err
	})
}

type PauseCmd struct{}

func (c *PauseCmd) Run(ctx *cli.Context) error {
	return transition(ctx, "Paused", (*engine.Engine).Pause)
}

type ResumeCmd struct{}

func (c *ResumeCmd) Run(ctx *cli.Context) error {
	return transition(ctx, "Resumed", (*engine.Engine).Resume)
}

// transition runs fn and prints the resulting status. Repeating a pause or
// resume is reported, not treated as a failure.
func transition(ctx *cli.Context, done string, fn func(*engine.Engine) error) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	if err := fn(eng); err != nil {
		if !engine.IsBenign(err) {
			return err
		}
		done = "ℹ " + err.Error()
	} else {
		done = "✓ " + done
	}
	status := eng.Status()
	return ctx.Render(status, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, done)
		return err
	})
}

type StopCmd struct{}

func (c *StopCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	entry, err := eng.Stop()
	if err != nil {
		return err
	}
	return ctx.Render(entry, func(w io.Writer) error {
		return printClosed(w, entry, eng.Location())
	})
}

type CancelCmd struct{}

func (c *CancelCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	entry, err := eng.Cancel()
	if err != nil {
		return err
	}
	return ctx.Render(entry, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Discarded session started at %s\n", entry.Start.In(eng.Location()).Format("15:04"))
		return err
	})
}

func printClosed(w io.Writer, entry models.TimeEntry, loc *time.Location) error {
	worked, brk := aggregate.EntrySeconds(entry, aggregate.Options{})
	_, err := fmt.Fprintf(w, "✓ Stopped. %s-%s, %s worked, %s break\n",
		entry.Start.In(loc).Format("15:04"),
		entry.End.In(loc).Format("15:04"),
		aggregate.FormatDuration(worked),
		aggregate.FormatDuration(brk),
	)
	return err
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	status := eng.Status()
	now := eng.Now()
	return ctx.Render(status, func(w io.Writer) error {
		if status.State == session.Idle.String() || status.Entry == nil {
			_, err := fmt.Fprintln(w, "Not tracking.")
			return err
		}
		entry := status.Entry
		fmt.Fprintf(w, "%s %s (started %s)\n",
			status.State,
			aggregate.FormatClock(status.ElapsedSeconds),
			humanize.RelTime(entry.Start, now, "ago", "from now"),
		)
		if entry.Project != "" {
			fmt.Fprintf(w, "  Project:  %s\n", entry.Project)
		}
		if entry.Location != "" {
			fmt.Fprintf(w, "  Location: %s\n", entry.Location)
		}
		if status.PausedSeconds > 0 {
			fmt.Fprintf(w, "  Paused:   %s\n", aggregate.FormatDuration(status.PausedSeconds))
		}
		if status.BreakEndAt != nil {
			fmt.Fprintf(w, "  Break:    until %s (%s left)\n",
				status.BreakEndAt.In(eng.Location()).Format("15:04"),
				aggregate.FormatClock(status.RemainingBreakSeconds))
		}
		return nil
	})
}
