package reports

import (
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/timeline"
)

type DayCmd struct {
	Date     string `arg:"" optional:"" default:"today" help:"Day to show (YYYY-MM-DD, 'today' or 'yesterday')."`
	Timeline bool   `help:"Draw the day's timeline bar." short:"t"`
	Width    int    `help:"Width of the timeline bar in columns." default:"60"`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date, eng.Now(), eng.Location())
	if err != nil {
		return err
	}
	day, err := eng.DayAggregate(date)
	if err != nil {
		return err
	}

	return ctx.Render(day, func(w io.Writer) error {
		fmt.Fprintf(w, "%s\n", date.Format("Monday "+constants.DateFormat))
		fmt.Fprintf(w, "  Worked:  %s\n", aggregate.FormatDuration(day.WorkedSeconds))
		fmt.Fprintf(w, "  Break:   %s\n", aggregate.FormatDuration(day.BreakSeconds))
		if day.FirstStart != nil {
			fmt.Fprintf(w, "  From:    %s\n", day.FirstStart.In(eng.Location()).Format(constants.TimeFormat))
		}
		if day.LastEnd != nil {
			fmt.Fprintf(w, "  To:      %s\n", day.LastEnd.In(eng.Location()).Format(constants.TimeFormat))
		}
		if day.InProgress {
			fmt.Fprintln(w, "  (tracking in progress)")
		}
		if !c.Timeline {
			return nil
		}
		segments, err := eng.TimelineSegments(date)
		if err != nil {
			return err
		}
		cfg, err := eng.TimelineConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%02d:00 %s %02d:00\n", cfg.StartHour, timeline.RenderBar(segments, cfg, c.Width), cfg.EndHour)
		return nil
	})
}

type WeekCmd struct {
	Date string `arg:"" optional:"" default:"today" help:"Any day in the week to show."`
}

func (c *WeekCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date, eng.Now(), eng.Location())
	if err != nil {
		return err
	}
	week, err := eng.WeekAggregate(eng.WeekStartFor(date))
	if err != nil {
		return err
	}

	return ctx.Render(week, func(w io.Writer) error {
		fmt.Fprintf(w, "Week of %s\n", week.Start.Format(constants.DateFormat))
		for _, day := range week.Days {
			marker := ""
			if day.InProgress {
				marker = " *"
			}
			fmt.Fprintf(w, "  %s  %6s  %6s%s\n",
				day.Date.Format("Mon 01-02"),
				aggregate.FormatDuration(day.WorkedSeconds),
				aggregate.FormatDuration(day.BreakSeconds),
				marker)
		}
		fmt.Fprintf(w, "\n  Total:    %s of %s\n", aggregate.FormatDuration(week.WorkedSeconds), aggregate.FormatDuration(week.TargetSeconds))
		fmt.Fprintf(w, "  Overtime: %s\n", aggregate.FormatSigned(week.OvertimeSeconds))
		return nil
	})
}

type TimelineCmd struct {
	Date   string `arg:"" optional:"" default:"today" help:"Day to lay out."`
	SVG    bool   `help:"Write an SVG drawing instead of a terminal bar."`
	Output string `help:"File to write the SVG to (default stdout)." short:"o" type:"path"`
	Width  int    `help:"Width of the terminal bar in columns." default:"60"`
}

func (c *TimelineCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date, eng.Now(), eng.Location())
	if err != nil {
		return err
	}
	segments, err := eng.TimelineSegments(date)
	if err != nil {
		return err
	}
	cfg, err := eng.TimelineConfig()
	if err != nil {
		return err
	}

	if c.SVG {
		svg := timeline.RenderSVG(segments, cfg)
		if c.Output == "" {
			_, err := io.WriteString(ctx.Writer(), svg)
			return err
		}
		if err := os.WriteFile(c.Output, []byte(svg), 0o644); err != nil {
			return fmt.Errorf("failed to write timeline: %w", err)
		}
		ctx.Printf("✓ Timeline written to %s\n", c.Output)
		return nil
	}

	return ctx.Render(segments, func(w io.Writer) error {
		fmt.Fprintf(w, "%02d:00 %s %02d:00\n", cfg.StartHour, timeline.RenderBar(segments, cfg, c.Width), cfg.EndHour)
		for _, s := range segments {
			end := "now"
			if !s.Open {
				end = s.End.In(eng.Location()).Format(constants.TimeFormat)
			}
			fmt.Fprintf(w, "  %-5s %s-%s %s\n", s.Category, s.Start.In(eng.Location()).Format(constants.TimeFormat), end, s.Label)
		}
		return nil
	})
}

type SummaryCmd struct {
	From string `help:"First day (default: start of this week)."`
	To   string `help:"Last day, inclusive (default: today)."`
}

func (c *SummaryCmd) Run(ctx *cli.Context) error {
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
	if !to.After(from) {
		return fmt.Errorf("--to must not be before --from")
	}

	summary, err := eng.Summary(from, to)
	if err != nil {
		return err
	}
	return ctx.Render(summary, func(w io.Writer) error {
		fmt.Fprintf(w, "%s to %s\n", from.Format(constants.DateFormat), to.AddDate(0, 0, -1).Format(constants.DateFormat))
		fmt.Fprintf(w, "  Projects:  %d\n", summary.Projects)
		fmt.Fprintf(w, "  Locations: %d\n", summary.Locations)
		for _, p := range summary.ByProject {
			fmt.Fprintf(w, "  %-20s %s\n", p.Project, aggregate.FormatDuration(p.WorkedSeconds))
		}
		return nil
	})
}
