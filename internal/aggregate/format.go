package aggregate

import "fmt"

// FormatDuration renders seconds as H:MM, truncating toward zero. Negative
// values of at least a minute get a leading minus.
func FormatDuration(seconds int64) string {
	sign := ""
	if seconds < 0 {
		seconds = -seconds
		if seconds >= 60 {
			sign = "-"
		}
	}
	minutes := seconds / 60
	return fmt.Sprintf("%s%d:%02d", sign, minutes/60, minutes%60)
}

// FormatSigned renders seconds as +H:MM or -H:MM
func FormatSigned(seconds int64) string {
	if seconds <= -60 {
		return FormatDuration(seconds)
	}
	if seconds < 0 {
		seconds = 0
	}
	return "+" + FormatDuration(seconds)
}

// FormatClock renders elapsed seconds as HH:MM:SS for the live display
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}
