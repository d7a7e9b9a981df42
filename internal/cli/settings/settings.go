package settings

import (
	"fmt"
	"io"

	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/models"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	WeeklyTarget    *int     `help:"Weekly target in minutes." name:"weekly-target"`
	WeekStart       *string  `help:"First day of the week (e.g. monday)." name:"week-start"`
	Timezone        *string  `help:"IANA time zone, or Local." name:"timezone"`
	TimelineStart   *int     `help:"First hour shown on the timeline." name:"timeline-start"`
	TimelineEnd     *int     `help:"Hour the timeline ends." name:"timeline-end"`
	PixelsPerHour   *float64 `help:"Timeline scale." name:"pixels-per-hour"`
	MinSegmentWidth *float64 `help:"Narrowest drawn segment in pixels." name:"min-segment-width"`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	settings := eng.Settings()

	if c.List {
		return ctx.Render(models.SettingsToMap(settings), func(w io.Writer) error {
			fmt.Fprintln(w, "Current Settings:")
			fmt.Fprintf(w, "  Weekly Target:      %d min\n", settings.WeeklyTargetMin)
			fmt.Fprintf(w, "  Week Start:         %s\n", settings.WeekStart)
			fmt.Fprintf(w, "  Timezone:           %s\n", settings.Timezone)
			fmt.Fprintln(w, "\nTimeline:")
			fmt.Fprintf(w, "  Window:             %02d:00-%02d:00\n", settings.TimelineStartHour, settings.TimelineEndHour)
			fmt.Fprintf(w, "  Pixels Per Hour:    %g\n", settings.PixelsPerHour)
			fmt.Fprintf(w, "  Min Segment Width:  %g\n", settings.MinSegmentWidth)
			return nil
		})
	}

	updated := false
	if c.WeeklyTarget != nil {
		settings.WeeklyTargetMin = *c.WeeklyTarget
		updated = true
	}
	if c.WeekStart != nil {
		wd, err := models.ParseWeekday(*c.WeekStart)
		if err != nil {
			return err
		}
		settings.WeekStart = wd
		updated = true
	}
	if c.Timezone != nil {
		settings.Timezone = *c.Timezone
		updated = true
	}
	if c.TimelineStart != nil {
		settings.TimelineStartHour = *c.TimelineStart
		updated = true
	}
	if c.TimelineEnd != nil {
		settings.TimelineEndHour = *c.TimelineEnd
		updated = true
	}
	if c.PixelsPerHour != nil {
		settings.PixelsPerHour = *c.PixelsPerHour
		updated = true
	}
	if c.MinSegmentWidth != nil {
		settings.MinSegmentWidth = *c.MinSegmentWidth
		updated = true
	}

	if updated {
		if err := eng.UpdateSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		ctx.Println("Settings updated successfully.")
	} else {
		ctx.Println("No changes specified. Use --list to view settings or flags to update them.")
	}

	return nil
}
