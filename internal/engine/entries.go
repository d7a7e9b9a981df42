package engine

import (
	"errors"
	"fmt"
	"time"

	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/importer"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
)

// AddEntry records a finished span by hand. Open entries can only be
// created with Start.
func (e *Engine) AddEntry(draft models.EntryDraft) (models.TimeEntry, error) {
	if draft.End == nil {
		return models.TimeEntry{}, &derrors.ValidationError{Problems: []string{"a manual entry needs an end; use start to track live"}}
	}
	draft.UserID = e.userID
	entry, err := e.store.CreateEntry(draft)
	if err != nil {
		return models.TimeEntry{}, err
	}
	logger.Info("Entry added", "user", e.userID, "entry", entry.ID)
	return entry, nil
}

// EditEntry applies patch to one of the user's entries. On the entry being
// tracked only the break and the descriptive fields may change; its start,
// end and status belong to the session.
func (e *Engine) EditEntry(id string, patch models.EntryPatch) (models.TimeEntry, error) {
	if cur, ok := e.Current(); ok && cur.ID == id {
		return e.editOpen(patch)
	}
	if _, err := e.ownEntry(id); err != nil {
		return models.TimeEntry{}, err
	}
	entry, err := e.store.UpdateEntry(id, patch)
	if err != nil {
		return models.TimeEntry{}, err
	}
	logger.Info("Entry edited", "user", e.userID, "entry", id)
	return entry, nil
}

func (e *Engine) editOpen(patch models.EntryPatch) (models.TimeEntry, error) {
	if patch.Start != nil || patch.End != nil || patch.Status != nil {
		return models.TimeEntry{}, derrors.NewInvalidState("change start, end or status of", "tracking")
	}
	cp := e.checkpoint()
	if patch.BreakMinutes != nil {
		if err := e.session.SetManualBreak(*patch.BreakMinutes); err != nil {
			return models.TimeEntry{}, err
		}
	}
	if err := e.session.Annotate(patch); err != nil {
		e.rollback(cp)
		return models.TimeEntry{}, err
	}

	cur := e.session.Entry()
	patch.BreakMinutes = &cur.BreakMinutes
	stored, err := e.store.UpdateEntry(cur.ID, patch)
	if err != nil {
		e.rollback(cp)
		return models.TimeEntry{}, err
	}
	logger.Info("Open entry edited", "user", e.userID, "entry", cur.ID)
	return stored, nil
}

// DeleteEntry soft-deletes one of the user's entries. The tracked entry
// has to be stopped or cancelled first.
func (e *Engine) DeleteEntry(id string) error {
	if cur, ok := e.Current(); ok && cur.ID == id {
		return derrors.NewInvalidState("delete", "tracking")
	}
	if _, err := e.ownEntry(id); err != nil {
		return err
	}
	if err := e.store.DeleteEntry(id); err != nil {
		return err
	}
	logger.Info("Entry deleted", "user", e.userID, "entry", id)
	return nil
}

// ArchiveEntry locks a closed entry against further edits
func (e *Engine) ArchiveEntry(id string) error {
	if _, err := e.ownEntry(id); err != nil {
		return err
	}
	return e.store.ArchiveEntry(id)
}

// RestoreEntry undoes a delete. Restoring an open entry makes it the
// tracked session again.
func (e *Engine) RestoreEntry(id string) error {
	if _, err := e.ownDeletedEntry(id); err != nil {
		return err
	}
	if err := e.store.RestoreEntry(id); err != nil {
		return err
	}
	entry, err := e.store.GetEntry(id)
	if err != nil {
		return err
	}
	if entry.IsOpen() {
		return e.Resync()
	}
	return nil
}

// ListEntries returns the user's entries starting in [from, to)
func (e *Engine) ListEntries(from, to time.Time) ([]models.TimeEntry, error) {
	return e.entriesBetween(from, to)
}

// ListDeleted returns the user's soft-deleted entries starting in [from, to)
func (e *Engine) ListDeleted(from, to time.Time) ([]models.TimeEntry, error) {
	all, err := e.store.ListEntries(models.EntryFilter{UserID: e.userID, From: from, To: to, IncludeDeleted: true})
	if err != nil {
		return nil, err
	}
	deleted := make([]models.TimeEntry, 0, len(all))
	for _, entry := range all {
		if entry.DeletedAt != nil {
			deleted = append(deleted, entry)
		}
	}
	return deleted, nil
}

// ownDeletedEntry finds one of the user's soft-deleted entries. Other
// users' rows are reported as not found.
func (e *Engine) ownDeletedEntry(id string) (models.TimeEntry, error) {
	all, err := e.store.ListEntries(models.EntryFilter{UserID: e.userID, IncludeDeleted: true})
	if err != nil {
		return models.TimeEntry{}, err
	}
	for _, entry := range all {
		if entry.ID == id && entry.DeletedAt != nil {
			return entry, nil
		}
	}
	return models.TimeEntry{}, fmt.Errorf("deleted entry %s: %w", id, storage.ErrNotFound)
}

// ownEntry hides other users' entries behind ErrNotFound
func (e *Engine) ownEntry(id string) (models.TimeEntry, error) {
	entry, err := e.store.GetEntry(id)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if entry.UserID != e.userID {
		return models.TimeEntry{}, fmt.Errorf("entry %s: %w", id, storage.ErrNotFound)
	}
	return entry, nil
}

// ValidateImport parses raw rows in the configured time zone.
func (e *Engine) ValidateImport(raws []importer.RawRow) []importer.Row {
	return importer.NewValidator(e.loc, nil).ValidateBatch(raws)
}

// CommitImport writes the valid rows. A row the store rejects is reported
// in the result and does not stop the others.
func (e *Engine) CommitImport(rows []importer.Row) (importer.CommitResult, error) {
	return importer.Commit(e.store, e.userID, rows)
}

// UpdateSettings saves settings and applies them to later queries. A
// running break keeps its end time.
func (e *Engine) UpdateSettings(settings models.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := e.store.SaveSettings(settings); err != nil {
		return err
	}
	if err := e.loadSettings(); err != nil {
		return err
	}
	breakEnd := e.breakEnd()
	e.breaks = newScheduler(e)
	e.breaks.Restore(breakEnd)
	return nil
}

// IsBenign reports whether err is an idempotent no-op such as pausing twice
func IsBenign(err error) bool {
	var invalid *derrors.InvalidStateError
	return errors.As(err, &invalid) && invalid.Benign
}
