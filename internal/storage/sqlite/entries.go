package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
)

// Timestamps are stored as fixed-width UTC text so that string order is
// time order.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

const entryColumns = `id, user_id, start_at, end_at, break_minutes, project, location, note,
	cost_center, category, status, created_at, updated_at, archived_at, deleted_at`

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return storage.Timestamp(t).Format(tsLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(tsLayout, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanEntry(sc rowScanner) (models.TimeEntry, error) {
	var e models.TimeEntry
	var start, created, updated string
	var end, archived, deleted sql.NullString
	var category, status string

	err := sc.Scan(&e.ID, &e.UserID, &start, &end, &e.BreakMinutes, &e.Project, &e.Location, &e.Note,
		&e.CostCenter, &category, &status, &created, &updated, &archived, &deleted)
	if err != nil {
		return models.TimeEntry{}, err
	}
	e.Category = constants.Category(category)
	e.Status = constants.EntryStatus(status)

	if e.Start, err = time.Parse(tsLayout, start); err != nil {
		return models.TimeEntry{}, fmt.Errorf("parsing start_at of %s: %w", e.ID, err)
	}
	if e.CreatedAt, err = time.Parse(tsLayout, created); err != nil {
		return models.TimeEntry{}, fmt.Errorf("parsing created_at of %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = time.Parse(tsLayout, updated); err != nil {
		return models.TimeEntry{}, fmt.Errorf("parsing updated_at of %s: %w", e.ID, err)
	}
	if e.End, err = parseNullTime(end); err != nil {
		return models.TimeEntry{}, fmt.Errorf("parsing end_at of %s: %w", e.ID, err)
	}
	if e.ArchivedAt, err = parseNullTime(archived); err != nil {
		return models.TimeEntry{}, fmt.Errorf("parsing archived_at of %s: %w", e.ID, err)
	}
	if e.DeletedAt, err = parseNullTime(deleted); err != nil {
		return models.TimeEntry{}, fmt.Errorf("parsing deleted_at of %s: %w", e.ID, err)
	}
	return e, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func getEntry(q querier, id string) (models.TimeEntry, error) {
	e, err := scanEntry(q.QueryRow(`SELECT `+entryColumns+` FROM time_entries WHERE id = ? AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, fmt.Errorf("entry %s: %w", id, storage.ErrNotFound)
	}
	return e, err
}

// checkConflicts enforces the single open entry per user and rejects exact
// duplicates of a closed entry.
func checkConflicts(q querier, e models.TimeEntry) error {
	var id string
	var err error
	if e.IsOpen() {
		err = q.QueryRow(`SELECT id FROM time_entries
			WHERE user_id = ? AND end_at IS NULL AND deleted_at IS NULL AND id <> ?`, e.UserID, e.ID).Scan(&id)
		if err == nil {
			return storage.ErrOpenEntryExists(e.UserID, nil)
		}
	} else {
		err = q.QueryRow(`SELECT id FROM time_entries
			WHERE user_id = ? AND start_at = ? AND end_at = ? AND deleted_at IS NULL AND id <> ?`,
			e.UserID, formatTime(e.Start), formatTime(*e.End), e.ID).Scan(&id)
		if err == nil {
			return storage.ErrDuplicateEntry(id)
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func (s *Store) CreateEntry(draft models.EntryDraft) (models.TimeEntry, error) {
	e, err := storage.NewEntry(draft, s.now())
	if err != nil {
		return models.TimeEntry{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.TimeEntry{}, err
	}
	defer tx.Rollback()

	if err := checkConflicts(tx, e); err != nil {
		return models.TimeEntry{}, err
	}

	_, err = tx.Exec(`INSERT INTO time_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, formatTime(e.Start), formatNullTime(e.End), e.BreakMinutes, e.Project, e.Location, e.Note,
		e.CostCenter, string(e.Category), string(e.Status), formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
		formatNullTime(e.ArchivedAt), formatNullTime(e.DeletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.TimeEntry{}, storage.ErrOpenEntryExists(e.UserID, err)
		}
		return models.TimeEntry{}, fmt.Errorf("failed to insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.TimeEntry{}, err
	}
	return e, nil
}

func (s *Store) GetEntry(id string) (models.TimeEntry, error) {
	return getEntry(s.db, id)
}

func (s *Store) UpdateEntry(id string, patch models.EntryPatch) (models.TimeEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return models.TimeEntry{}, err
	}
	defer tx.Rollback()

	existing, err := getEntry(tx, id)
	if err != nil {
		return models.TimeEntry{}, err
	}
	e, err := storage.PatchEntry(existing, patch, s.now())
	if err != nil {
		return models.TimeEntry{}, err
	}
	if err := checkConflicts(tx, e); err != nil {
		return models.TimeEntry{}, err
	}

	_, err = tx.Exec(`UPDATE time_entries SET start_at = ?, end_at = ?, break_minutes = ?, project = ?,
		location = ?, note = ?, cost_center = ?, category = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		formatTime(e.Start), formatNullTime(e.End), e.BreakMinutes, e.Project,
		e.Location, e.Note, e.CostCenter, string(e.Category), string(e.Status), formatTime(e.UpdatedAt), id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.TimeEntry{}, storage.ErrOpenEntryExists(e.UserID, err)
		}
		return models.TimeEntry{}, fmt.Errorf("failed to update entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.TimeEntry{}, err
	}
	return e, nil
}

// DeleteEntry soft-deletes an entry. Deleting the open entry also drops its
// session state.
func (s *Store) DeleteEntry(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e, err := getEntry(tx, id)
	if err != nil {
		return err
	}
	if e.IsArchived() {
		return derrors.NewInvalidState("delete", "archived")
	}
	if _, err := tx.Exec(`UPDATE time_entries SET deleted_at = ? WHERE id = ?`, formatTime(s.now()), id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if e.IsOpen() {
		if _, err := tx.Exec(`DELETE FROM session_state WHERE entry_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear session state: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) RestoreEntry(id string) error {
	res, err := s.db.Exec(`UPDATE time_entries SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`, id)
	if err != nil {
		if isUniqueViolation(err) {
			return &derrors.ConflictError{Resource: "time_entries", Reason: "restoring would create a second open entry", Err: err}
		}
		return fmt.Errorf("failed to restore entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("deleted entry %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ArchiveEntry locks a closed entry against further changes
func (s *Store) ArchiveEntry(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e, err := getEntry(tx, id)
	if err != nil {
		return err
	}
	if e.IsOpen() {
		return derrors.NewInvalidState("archive", "open")
	}
	if e.IsArchived() {
		return nil
	}
	if _, err := tx.Exec(`UPDATE time_entries SET archived_at = ? WHERE id = ?`, formatTime(s.now()), id); err != nil {
		return fmt.Errorf("failed to archive entry: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListEntries(filter models.EntryFilter) ([]models.TimeEntry, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if !filter.From.IsZero() {
		where = append(where, "start_at >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "start_at < ?")
		args = append(args, formatTime(filter.To))
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.OpenOnly {
		where = append(where, "end_at IS NULL")
	}
	if !filter.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}

	query := `SELECT ` + entryColumns + ` FROM time_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_at, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) GetOpenEntry(userID string) (models.TimeEntry, error) {
	e, err := scanEntry(s.db.QueryRow(`SELECT `+entryColumns+` FROM time_entries
		WHERE user_id = ? AND end_at IS NULL AND deleted_at IS NULL`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, fmt.Errorf("open entry for %s: %w", userID, storage.ErrNotFound)
	}
	return e, err
}
