// Package timeline lays out one day's entries on a fixed pixel-per-hour axis.
package timeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/julianstephens/daylog/internal/aggregate"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/models"
)

// Config describes the visible window and scale
type Config struct {
	StartHour       int
	EndHour         int
	PixelsPerHour   float64
	MinSegmentWidth float64
	Location        *time.Location
}

// ConfigFromSettings builds a Config from stored settings
func ConfigFromSettings(s models.Settings) (Config, error) {
	loc, err := s.Location()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		StartHour:       s.TimelineStartHour,
		EndHour:         s.TimelineEndHour,
		PixelsPerHour:   s.PixelsPerHour,
		MinSegmentWidth: s.MinSegmentWidth,
		Location:        loc,
	}
	return cfg, cfg.Validate()
}

// Validate checks that the window is non-empty and the scale is positive
func (c Config) Validate() error {
	if c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour {
		return fmt.Errorf("invalid timeline window %02d:00-%02d:00", c.StartHour, c.EndHour)
	}
	if c.PixelsPerHour <= 0 {
		return fmt.Errorf("pixels per hour must be positive, got %g", c.PixelsPerHour)
	}
	if c.MinSegmentWidth < 0 {
		return fmt.Errorf("minimum segment width must not be negative, got %g", c.MinSegmentWidth)
	}
	return nil
}

// TotalWidth is the pixel width of the whole window
func (c Config) TotalWidth() float64 {
	return float64(c.EndHour-c.StartHour) * c.PixelsPerHour
}

func (c Config) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Segment is one entry's rectangle on the axis.
type Segment struct {
	EntryID  string             `json:"entry_id"`
	Category constants.Category `json:"category"`
	Left     float64            `json:"left"`
	Width    float64            `json:"width"`
	Start    time.Time          `json:"start"`
	End      time.Time          `json:"end"`
	Open     bool               `json:"open"`
	// Clipped is set when part of the entry lies outside the window
	Clipped bool   `json:"clipped"`
	Label   string `json:"label,omitempty"`
}

// Classify picks the visual category of an entry. An explicit category wins;
// otherwise an entry with break minutes is drawn as a break.
func Classify(e models.TimeEntry) constants.Category {
	if e.Category != "" {
		return e.Category
	}
	if e.BreakMinutes > 0 {
		return constants.CategoryBreak
	}
	return constants.CategoryWork
}

// Layout maps the entries that start on date to segments in start order.
// Open entries end at now. Entries outside the window are clipped to a
// sliver at the nearest edge instead of being dropped; overlapping entries
// are left overlapping.
func Layout(entries []models.TimeEntry, date time.Time, cfg Config, now time.Time) []Segment {
	loc := cfg.loc()
	day := aggregate.DateOf(date, loc)
	y, m, d := day.Date()
	windowStart := time.Date(y, m, d, cfg.StartHour, 0, 0, 0, loc)
	total := cfg.TotalWidth()

	var picked []models.TimeEntry
	for _, e := range entries {
		if aggregate.Counted(e) && aggregate.DateOf(e.Start, loc).Equal(day) {
			picked = append(picked, e)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if !picked[i].Start.Equal(picked[j].Start) {
			return picked[i].Start.Before(picked[j].Start)
		}
		return picked[i].ID < picked[j].ID
	})

	segments := make([]Segment, 0, len(picked))
	for _, e := range picked {
		end := e.EndOr(now)
		if end.Before(e.Start) {
			end = e.Start
		}
		left, width, clipped := place(e.Start, end, windowStart, cfg.PixelsPerHour, cfg.MinSegmentWidth, total)
		segments = append(segments, Segment{
			EntryID:  e.ID,
			Category: Classify(e),
			Left:     left,
			Width:    width,
			Start:    e.Start,
			End:      end,
			Open:     e.IsOpen(),
			Clipped:  clipped,
			Label:    e.Project,
		})
	}
	return segments
}

func place(start, end, windowStart time.Time, pph, minWidth, total float64) (left, width float64, clipped bool) {
	startPx := start.Sub(windowStart).Hours() * pph
	endPx := end.Sub(windowStart).Hours() * pph

	visStart := math.Max(0, startPx)
	visEnd := math.Min(total, endPx)
	clipped = startPx < 0 || endPx > total

	left = visStart
	width = math.Max(minWidth, visEnd-visStart)
	if visEnd < visStart {
		// wholly outside the window
		width = minWidth
		if startPx >= total {
			left = total
		}
	}
	if width > total {
		width = total
	}
	if left+width > total {
		left = math.Max(0, total-width)
	}
	return left, width, clipped
}
