package storage

import "github.com/julianstephens/daylog/internal/models"

// Provider is the persistence collaborator of the engine. Implementations
// must reject a second open entry for the same user with a
// *errors.ConflictError.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Time entries
	CreateEntry(models.EntryDraft) (models.TimeEntry, error)
	GetEntry(id string) (models.TimeEntry, error)
	// UpdateEntry applies patch and returns the stored result. Archived
	// entries cannot be updated.
	UpdateEntry(id string, patch models.EntryPatch) (models.TimeEntry, error)
	DeleteEntry(id string) error
	RestoreEntry(id string) error
	ArchiveEntry(id string) error
	ListEntries(models.EntryFilter) ([]models.TimeEntry, error)
	// GetOpenEntry returns ErrNotFound when the user is not tracking
	GetOpenEntry(userID string) (models.TimeEntry, error)

	// Session state
	GetSessionState(userID string) (models.SessionState, error)
	SaveSessionState(models.SessionState) error
	ClearSessionState(userID string) error

	// Utils
	GetConfigPath() string
}
