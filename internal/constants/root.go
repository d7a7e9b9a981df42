package constants

import "time"

// EntryStatus is the lifecycle status of a time entry
type EntryStatus string

// Category is the visual classification of a time entry
type Category string

const (
	AppName            = "daylog"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/daylog"
	DefaultDBFileName  = "daylog.db"
	KeyringDBSentinel  = "keyring"
	Version            = "v0.2.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// ImportDateFormat is the date format of spreadsheet imports (DD.MM.YYYY)
	ImportDateFormat = "02.01.2006"

	// Entry statuses
	StatusActive    EntryStatus = "active"
	StatusPaused    EntryStatus = "paused"
	StatusCompleted EntryStatus = "completed"
	StatusCancelled EntryStatus = "cancelled"

	// Categories
	CategoryWork  Category = "work"
	CategoryBreak Category = "break"

	// Break scheduling bounds in minutes
	MinBreakMinutes = 1
	MaxBreakMinutes = 480

	// Tick is the refresh interval for the live session clock
	Tick = time.Second

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "daylog-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.daylog"
)

// Locations accepted by the importer without a warning
var KnownLocations = []string{
	"office",
	"home_office",
	"remote",
	"client_site",
	"business_trip",
}
