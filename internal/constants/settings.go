package constants

import "time"

const (
	SettingWeeklyTargetMin = "weekly_target_min"
	SettingWeekStart       = "week_start"
	SettingTimezone        = "timezone"
	SettingTimelineStart   = "timeline_start_hour"
	SettingTimelineEnd     = "timeline_end_hour"
	SettingPixelsPerHour   = "pixels_per_hour"
	SettingMinSegmentWidth = "min_segment_width"

	// Default Settings Values
	DefaultWeeklyTargetMin = 40 * 60
	DefaultWeekStart       = time.Monday
	DefaultTimezone        = "Local" // Use system local timezone by default
	DefaultTimelineStart   = 8
	DefaultTimelineEnd     = 18
	DefaultPixelsPerHour   = 70.0
	DefaultMinSegmentWidth = 4.0
)
