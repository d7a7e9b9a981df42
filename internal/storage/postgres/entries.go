package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
)

const entryColumns = `id, user_id, start_at, end_at, break_minutes, project, location, note,
	cost_center, category, status, created_at, updated_at, archived_at, deleted_at`

const uniqueViolation = "23505"

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullTime(ns sql.NullTime) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := ns.Time.UTC()
	return &t
}

func scanEntry(sc rowScanner) (models.TimeEntry, error) {
	var e models.TimeEntry
	var end, archived, deleted sql.NullTime
	var category, status string

	err := sc.Scan(&e.ID, &e.UserID, &e.Start, &end, &e.BreakMinutes, &e.Project, &e.Location, &e.Note,
		&e.CostCenter, &category, &status, &e.CreatedAt, &e.UpdatedAt, &archived, &deleted)
	if err != nil {
		return models.TimeEntry{}, err
	}
	e.Start = e.Start.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	e.End = nullTime(end)
	e.ArchivedAt = nullTime(archived)
	e.DeletedAt = nullTime(deleted)
	e.Category = constants.Category(category)
	e.Status = constants.EntryStatus(status)
	return e, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func getEntry(q querier, id string, lock bool) (models.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE id = $1 AND deleted_at IS NULL`
	if lock {
		query += " FOR UPDATE"
	}
	e, err := scanEntry(q.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, fmt.Errorf("entry %s: %w", id, storage.ErrNotFound)
	}
	return e, err
}

func checkConflicts(q querier, e models.TimeEntry) error {
	var id string
	var err error
	if e.IsOpen() {
		err = q.QueryRow(`SELECT id FROM time_entries
			WHERE user_id = $1 AND end_at IS NULL AND deleted_at IS NULL AND id <> $2`, e.UserID, e.ID).Scan(&id)
		if err == nil {
			return storage.ErrOpenEntryExists(e.UserID, nil)
		}
	} else {
		err = q.QueryRow(`SELECT id FROM time_entries
			WHERE user_id = $1 AND start_at = $2 AND end_at = $3 AND deleted_at IS NULL AND id <> $4`,
			e.UserID, e.Start, *e.End, e.ID).Scan(&id)
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

	// a concurrent writer can still slip past the check; the partial unique
	// index catches it
	_, err = tx.Exec(`INSERT INTO time_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.UserID, e.Start, e.End, e.BreakMinutes, e.Project, e.Location, e.Note,
		e.CostCenter, string(e.Category), string(e.Status), e.CreatedAt, e.UpdatedAt, e.ArchivedAt, e.DeletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.TimeEntry{}, storage.ErrOpenEntryExists(e.UserID, err)
		}
		return models.TimeEntry{}, fmt.Errorf("failed to insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return models.TimeEntry{}, storage.ErrOpenEntryExists(e.UserID, err)
		}
		return models.TimeEntry{}, err
	}
	return e, nil
}

func (s *Store) GetEntry(id string) (models.TimeEntry, error) {
	return getEntry(s.db, id, false)
}

func (s *Store) UpdateEntry(id string, patch models.EntryPatch) (models.TimeEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return models.TimeEntry{}, err
	}
	defer tx.Rollback()

	existing, err := getEntry(tx, id, true)
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

	_, err = tx.Exec(`UPDATE time_entries SET start_at = $1, end_at = $2, break_minutes = $3, project = $4,
		location = $5, note = $6, cost_center = $7, category = $8, status = $9, updated_at = $10
		WHERE id = $11`,
		e.Start, e.End, e.BreakMinutes, e.Project, e.Location, e.Note, e.CostCenter,
		string(e.Category), string(e.Status), e.UpdatedAt, id)
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

func (s *Store) DeleteEntry(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e, err := getEntry(tx, id, true)
	if err != nil {
		return err
	}
	if e.IsArchived() {
		return derrors.NewInvalidState("delete", "archived")
	}
	if _, err := tx.Exec(`UPDATE time_entries SET deleted_at = $1 WHERE id = $2`, storage.Timestamp(s.now()), id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if e.IsOpen() {
		if _, err := tx.Exec(`DELETE FROM session_state WHERE entry_id = $1`, id); err != nil {
			return fmt.Errorf("failed to clear session state: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) RestoreEntry(id string) error {
	res, err := s.db.Exec(`UPDATE time_entries SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`, id)
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

func (s *Store) ArchiveEntry(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e, err := getEntry(tx, id, true)
	if err != nil {
		return err
	}
	if e.IsOpen() {
		return derrors.NewInvalidState("archive", "open")
	}
	if e.IsArchived() {
		return nil
	}
	if _, err := tx.Exec(`UPDATE time_entries SET archived_at = $1 WHERE id = $2`, storage.Timestamp(s.now()), id); err != nil {
		return fmt.Errorf("failed to archive entry: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListEntries(filter models.EntryFilter) ([]models.TimeEntry, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}
	if !filter.From.IsZero() {
		where = append(where, "start_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "start_at < "+arg(filter.To))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(pq.Array(statuses))+")")
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
		WHERE user_id = $1 AND end_at IS NULL AND deleted_at IS NULL`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, fmt.Errorf("open entry for %s: %w", userID, storage.ErrNotFound)
	}
	return e, err
}
