package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/daylog/internal/clock"
	"github.com/julianstephens/daylog/internal/config"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/engine"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/storage"
)

type Context struct {
	Store    storage.Provider
	Config   config.Config
	Format   Format
	Out      io.Writer
	Clock    clock.Clock
	Notifier engine.Notifier

	engine *engine.Engine
}

// Engine builds the session engine on first use. An overdue break is
// resumed right away so every command sees the current state.
func (c *Context) Engine() (*engine.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	var opts []engine.Option
	if c.Clock != nil {
		opts = append(opts, engine.WithClock(c.Clock))
	}
	if c.Notifier != nil {
		opts = append(opts, engine.WithNotifier(c.Notifier))
	}
	eng, err := engine.New(c.Store, c.Config.User, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := eng.Tick(); err != nil {
		logger.Warn("Catching up on an overdue break failed", "error", err)
	}
	c.engine = eng
	return eng, nil
}

func (c *Context) Writer() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Writer(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Writer(), args...)
}

// ParseDate accepts YYYY-MM-DD, "today" or "yesterday" and returns local
// midnight of that day in loc.
func ParseDate(s string, now time.Time, loc *time.Location) (time.Time, error) {
	now = now.In(loc)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	case "yesterday":
		return time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, loc), nil
	}
	d, err := time.ParseInLocation(constants.DateFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD, 'today' or 'yesterday')", s)
	}
	return d, nil
}

// ParseClock places an HH:MM time on the given local date
func ParseClock(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse(constants.TimeFormat, strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (expected HH:MM)", hhmm)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
