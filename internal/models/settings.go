package models

import "time"

// Settings represents per-user engine settings
type Settings struct {
	WeeklyTargetMin   int          `json:"weekly_target_min"`   // weekly worked-time goal in minutes, e.g. 2400
	WeekStart         time.Weekday `json:"week_start"`          // first day of the week
	Timezone          string       `json:"timezone"`            // IANA timezone name or "Local"
	TimelineStartHour int          `json:"timeline_start_hour"` // first visible hour of the timeline, e.g. 8
	TimelineEndHour   int          `json:"timeline_end_hour"`   // last visible hour of the timeline, e.g. 18
	PixelsPerHour     float64      `json:"pixels_per_hour"`
	MinSegmentWidth   float64      `json:"min_segment_width"`
}

// TargetSeconds returns the weekly target in seconds
func (s Settings) TargetSeconds() int64 {
	return int64(s.WeeklyTargetMin) * 60
}
