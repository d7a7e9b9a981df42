package entries

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/models"
)

// EntryAddCmd records a finished block of work after the fact
type EntryAddCmd struct {
	Start      string `arg:"" help:"Start time (HH:MM)."`
	End        string `arg:"" help:"End time (HH:MM)."`
	Date       string `help:"Day of the entry (YYYY-MM-DD, 'today' or 'yesterday')." default:"today" short:"d"`
	Break      int    `help:"Break minutes inside the span." short:"b"`
	Project    string `help:"Project the time is booked on." short:"p"`
	Location   string `help:"Where the work happened." short:"l"`
	Note       string `help:"Free-form note." short:"n"`
	CostCenter string `help:"Cost centre for billing." name:"cost-center"`
}

func (c *EntryAddCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date, eng.Now(), eng.Location())
	if err != nil {
		return err
	}
	start, err := cli.ParseClock(date, c.Start)
	if err != nil {
		return err
	}
	end, err := cli.ParseClock(date, c.End)
	if err != nil {
		return err
	}

	entry, err := eng.AddEntry(models.EntryDraft{
		Start:        start,
		End:          &end,
		BreakMinutes: c.Break,
		Project:      c.Project,
		Location:     c.Location,
		Note:         c.Note,
		CostCenter:   c.CostCenter,
	})
	if err != nil {
		return err
	}
	return ctx.Render(entry, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Added entry %s\n", entry.ID)
		return err
	})
}

// EntryEditCmd changes fields of an entry. Times stay on the entry's day.
type EntryEditCmd struct {
	ID         string  `arg:"" help:"ID of the entry to edit."`
	Start      *string `help:"New start time (HH:MM)."`
	End        *string `help:"New end time (HH:MM)."`
	Break      *int    `help:"New break minutes." short:"b"`
	Project    *string `help:"New project." short:"p"`
	Location   *string `help:"New location." short:"l"`
	Note       *string `help:"New note." short:"n"`
	CostCenter *string `help:"New cost centre." name:"cost-center"`
}

func (c *EntryEditCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	existing, err := ctx.Store.GetEntry(c.ID)
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}
	day := aggregate.DateOf(existing.Start, eng.Location())

	patch := models.EntryPatch{
		BreakMinutes: c.Break,
		Project:      c.Project,
		Location:     c.Location,
		Note:         c.Note,
		CostCenter:   c.CostCenter,
	}
	if c.Start != nil {
		start, err := cli.ParseClock(day, *c.Start)
		if err != nil {
			return err
		}
		patch.Start = &start
	}
	if c.End != nil {
		end, err := cli.ParseClock(day, *c.End)
		if err != nil {
			return err
		}
		patch.End = &end
	}

	entry, err := eng.EditEntry(c.ID, patch)
	if err != nil {
		return err
	}
	return ctx.Render(entry, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Updated entry %s\n", entry.ID)
		return err
	})
}

type EntryDeleteCmd struct {
	ID string `arg:"" help:"ID of the entry to delete."`
}

func (c *EntryDeleteCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	if err := eng.DeleteEntry(c.ID); err != nil {
		return err
	}
	ctx.Printf("✓ Deleted entry %s (restore with 'daylog entry restore %s')\n", c.ID, c.ID)
	return nil
}

type EntryRestoreCmd struct {
	ID string `arg:"" help:"ID of the deleted entry."`
}

func (c *EntryRestoreCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	if err := eng.RestoreEntry(c.ID); err != nil {
		return err
	}
	ctx.Printf("✓ Restored entry %s\n", c.ID)
	return nil
}

type EntryArchiveCmd struct {
	ID string `arg:"" help:"ID of the entry to lock."`
}

func (c *EntryArchiveCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	if err := eng.ArchiveEntry(c.ID); err != nil {
		return err
	}
	ctx.Printf("✓ Archived entry %s\n", c.ID)
	return nil
}

type EntryListCmd struct {
	From    string `help:"First day (default: start of this week)."`
	To      string `help:"Last day, inclusive (default: today)."`
	Deleted bool   `help:"List deleted entries instead."`
	ShowIDs bool   `help:"Show entry IDs." name:"show-ids"`
}

func (c *EntryListCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	now := eng.Now()
	from := eng.WeekStartFor(now)
	if c.From != "" {
		if from, err = cli.ParseDate(c.From, now, eng.Location()); err != nil {
			return err
		}
	}
	to, err := cli.ParseDate(c.To, now, eng.Location())
	if err != nil {
		return err
	}
	to = to.AddDate(0, 0, 1)

	var list []models.TimeEntry
	if c.Deleted {
		list, err = eng.ListDeleted(from, to)
	} else {
		list, err = eng.ListEntries(from, to)
	}
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	return ctx.Render(list, func(w io.Writer) error {
		if len(list) == 0 {
			_, err := fmt.Fprintln(w, "No entries found")
			return err
		}
		for _, e := range list {
			printEntry(w, e, eng.Location(), now, c.ShowIDs)
		}
		return nil
	})
}

func printEntry(w io.Writer, e models.TimeEntry, loc *time.Location, now time.Time, showID bool) {
	end := "…"
	if e.End != nil {
		end = e.End.In(loc).Format(constants.TimeFormat)
	}
	worked, _ := aggregate.EntrySeconds(e, aggregate.Options{Now: now})
	idStr := ""
	if showID {
		idStr = fmt.Sprintf(" (ID: %s)", e.ID)
	}
	fmt.Fprintf(w, "  [%s] %s %s-%s %s, %dm break%s\n",
		e.Status,
		e.Start.In(loc).Format(constants.DateFormat),
		e.Start.In(loc).Format(constants.TimeFormat),
		end,
		aggregate.FormatDuration(worked),
		e.BreakMinutes,
		idStr,
	)
	if e.Project != "" || e.Location != "" {
		fmt.Fprintf(w, "      %s %s\n", e.Project, e.Location)
	}
	if e.DeletedAt != nil {
		fmt.Fprintf(w, "      deleted %s\n", humanize.RelTime(*e.DeletedAt, now, "ago", "from now"))
	} else if e.ArchivedAt != nil {
		fmt.Fprintf(w, "      archived %s\n", humanize.RelTime(*e.ArchivedAt, now, "ago", "from now"))
	}
}
