// Package storage defines the persistence boundary and the rules every
// store applies before writing.
package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
)

// ErrNotFound is returned when a row does not exist or is soft-deleted
var ErrNotFound = errors.New("not found")

const entriesResource = "time_entries"

// ErrOpenEntryExists builds the conflict returned for a second open entry
func ErrOpenEntryExists(userID string, cause error) *derrors.ConflictError {
	return &derrors.ConflictError{
		Resource: entriesResource,
		Reason:   "an open entry already exists for user " + userID,
		Err:      cause,
	}
}

// ErrDuplicateEntry builds the conflict returned for an entry with the same
// span as an existing one
func ErrDuplicateEntry(existingID string) *derrors.ConflictError {
	return &derrors.ConflictError{
		Resource: entriesResource,
		Reason:   "an entry with the same start and end already exists (" + existingID + ")",
	}
}

// Timestamp normalises a time for storage. Postgres keeps microseconds, so
// every store truncates to that.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NewEntry turns a draft into a validated entry with a fresh id. An open
// draft without status becomes active, a closed one completed.
func NewEntry(draft models.EntryDraft, now time.Time) (models.TimeEntry, error) {
	e := draft.Entry()
	e.ID = uuid.NewString()
	e.Start = Timestamp(e.Start)
	if e.End != nil {
		end := Timestamp(*e.End)
		e.End = &end
	}
	if e.Status == "" {
		e.Status = constants.StatusActive
		if e.End != nil {
			e.Status = constants.StatusCompleted
		}
	}
	e.CreatedAt = Timestamp(now)
	e.UpdatedAt = e.CreatedAt
	if err := e.Validate(); err != nil {
		return models.TimeEntry{}, err
	}
	return e, nil
}

// PatchEntry applies a patch to a stored entry and validates the result.
// Archived entries are immutable.
func PatchEntry(existing models.TimeEntry, patch models.EntryPatch, now time.Time) (models.TimeEntry, error) {
	if existing.IsArchived() {
		return models.TimeEntry{}, derrors.NewInvalidState("edit", "archived")
	}
	e := patch.Apply(existing)
	e.Start = Timestamp(e.Start)
	if e.End != nil {
		end := Timestamp(*e.End)
		e.End = &end
	}
	e.UpdatedAt = Timestamp(now)
	if err := e.Validate(); err != nil {
		return models.TimeEntry{}, err
	}
	return e, nil
}
