package breaks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/engine"
)

type breakResult struct {
	EndAt            time.Time `json:"end_at" yaml:"end_at"`
	RemainingSeconds int64     `json:"remaining_seconds" yaml:"remaining_seconds"`
}

// BreakStartCmd pauses the session for a fixed time. Without arguments it
// asks for the length.
type BreakStartCmd struct {
	Minutes int    `arg:"" optional:"" help:"Length of the break in minutes (1-480)."`
	Until   string `help:"End the break at this clock time (HH:MM), rolling over to tomorrow if it has passed." short:"u"`
	Wait    bool   `help:"Stay in the foreground and resume when the break is over." short:"w"`
}

func (c *BreakStartCmd) Run(ctx *cli.Context) error {
	if c.Minutes != 0 && c.Until != "" {
		return errors.New("give either minutes or --until, not both")
	}
	if c.Minutes == 0 && c.Until == "" {
		if err := c.ask(); err != nil {
			return err
		}
	}

	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	var endAt time.Time
	if c.Until != "" {
		endAt, err = eng.ScheduleUntil(c.Until)
	} else {
		endAt, err = eng.ScheduleFor(c.Minutes)
	}
	if err != nil {
		return err
	}

	res := breakResult{EndAt: endAt, RemainingSeconds: eng.RemainingBreakSeconds()}
	if err := ctx.Render(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "☕ Break until %s (%s)\n",
			endAt.In(eng.Location()).Format(constants.TimeFormat),
			aggregate.FormatDuration(res.RemainingSeconds))
		return err
	}); err != nil {
		return err
	}

	if !c.Wait {
		return nil
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ticker := time.NewTicker(constants.Tick)
	defer ticker.Stop()
	resumed, err := waitForBreak(sigCtx, eng, ticker.C)
	if err != nil {
		return err
	}
	if resumed {
		ctx.Println("✓ Break over, tracking again")
	} else {
		ctx.Println("ℹ Stopped waiting, the break is still scheduled")
	}
	return nil
}

func (c *BreakStartCmd) ask() error {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("How long is the break?").
				Description("Minutes, or a clock time like 12:30").
				Value(&value).
				Validate(func(s string) error {
					_, _, err := parseLength(s)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive form error: %w", err)
	}
	minutes, until, err := parseLength(value)
	if err != nil {
		return err
	}
	c.Minutes, c.Until = minutes, until
	return nil
}

func parseLength(s string) (int, string, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		if _, err := time.Parse(constants.TimeFormat, s); err != nil {
			return 0, "", fmt.Errorf("invalid clock time %q", s)
		}
		return 0, s, nil
	}
	minutes, err := strconv.Atoi(s)
	if err != nil {
		return 0, "", fmt.Errorf("invalid minutes %q", s)
	}
	return minutes, "", nil
}

// waitForBreak ticks the engine until the break resumes the session, the
// break disappears or ctx is done.
func waitForBreak(ctx context.Context, eng *engine.Engine, ticks <-chan time.Time) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, nil
		case <-ticks:
			resumed, err := eng.Tick()
			if err != nil {
				return false, err
			}
			if resumed {
				return true, nil
			}
			if _, ok := eng.BreakEndAt(); !ok {
				return false, nil
			}
		}
	}
}

type BreakCancelCmd struct{}

func (c *BreakCancelCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	cancelled, err := eng.CancelBreak()
	if err != nil {
		return err
	}
	if !cancelled {
		ctx.Println("ℹ No break scheduled")
		return nil
	}
	ctx.Println("✓ Break cancelled. Still paused, use 'daylog resume' to continue")
	return nil
}

type BreakEndCmd struct{}

func (c *BreakEndCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	if err := eng.ResumeEarly(); err != nil {
		if engine.IsBenign(err) {
			ctx.Println("ℹ " + err.Error())
			return nil
		}
		return err
	}
	ctx.Printf("✓ Break ended early, %s elapsed\n", aggregate.FormatClock(int64(eng.Elapsed()/time.Second)))
	return nil
}
