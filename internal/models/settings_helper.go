package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a Settings struct.
// A missing week_start means the default week start.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{WeekStart: constants.DefaultWeekStart}

	for key, value := range data {
		switch key {
		case constants.SettingWeeklyTargetMin:
			if _, err := fmt.Sscanf(value, "%d", &settings.WeeklyTargetMin); err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		case constants.SettingWeekStart:
			wd, err := ParseWeekday(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.WeekStart = wd
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingTimelineStart:
			if _, err := fmt.Sscanf(value, "%d", &settings.TimelineStartHour); err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		case constants.SettingTimelineEnd:
			if _, err := fmt.Sscanf(value, "%d", &settings.TimelineEndHour); err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		case constants.SettingPixelsPerHour:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.PixelsPerHour = f
		case constants.SettingMinSegmentWidth:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.MinSegmentWidth = f
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingWeeklyTargetMin: strconv.Itoa(settings.WeeklyTargetMin),
		constants.SettingWeekStart:       strings.ToLower(settings.WeekStart.String()),
		constants.SettingTimezone:        settings.Timezone,
		constants.SettingTimelineStart:   strconv.Itoa(settings.TimelineStartHour),
		constants.SettingTimelineEnd:     strconv.Itoa(settings.TimelineEndHour),
		constants.SettingPixelsPerHour:   strconv.FormatFloat(settings.PixelsPerHour, 'f', -1, 64),
		constants.SettingMinSegmentWidth: strconv.FormatFloat(settings.MinSegmentWidth, 'f', -1, 64),
	}
}

// DefaultSettings returns the settings a freshly initialized store starts with
func DefaultSettings() Settings {
	s := Settings{}
	ApplyDefaultSettings(&s)
	s.WeekStart = constants.DefaultWeekStart
	return s
}

// ApplyDefaultSettings applies default values to missing settings.
// WeekStart is left alone since Sunday is a legitimate zero value.
func ApplyDefaultSettings(settings *Settings) {
	if settings.WeeklyTargetMin == 0 {
		settings.WeeklyTargetMin = constants.DefaultWeeklyTargetMin
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
	if settings.TimelineStartHour == 0 && settings.TimelineEndHour == 0 {
		settings.TimelineStartHour = constants.DefaultTimelineStart
		settings.TimelineEndHour = constants.DefaultTimelineEnd
	}
	if settings.PixelsPerHour == 0 {
		settings.PixelsPerHour = constants.DefaultPixelsPerHour
	}
	if settings.MinSegmentWidth == 0 {
		settings.MinSegmentWidth = constants.DefaultMinSegmentWidth
	}
}

// Validate checks that settings are usable by the aggregator and timeline
func (s Settings) Validate() error {
	if s.WeeklyTargetMin < 0 {
		return fmt.Errorf("weekly target must not be negative")
	}
	if s.TimelineStartHour < 0 || s.TimelineEndHour > 24 || s.TimelineStartHour >= s.TimelineEndHour {
		return fmt.Errorf("timeline window %02d:00-%02d:00 is invalid", s.TimelineStartHour, s.TimelineEndHour)
	}
	if s.PixelsPerHour <= 0 {
		return fmt.Errorf("pixels per hour must be positive")
	}
	if s.MinSegmentWidth < 0 {
		return fmt.Errorf("minimum segment width must not be negative")
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (s Settings) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday parses a weekday name or number (0=Sunday, 6=Saturday)
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if wd, ok := weekdayNames[s]; ok {
		return wd, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return time.Sunday, fmt.Errorf("invalid weekday: %s", s)
}
