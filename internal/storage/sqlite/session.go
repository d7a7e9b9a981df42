package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
)

func (s *Store) GetSessionState(userID string) (models.SessionState, error) {
	var st models.SessionState
	var pausedAt, breakEndAt sql.NullString
	var updated string

	err := s.db.QueryRow(`SELECT user_id, entry_id, paused_at, paused_seconds, break_end_at, updated_at
		FROM session_state WHERE user_id = ?`, userID).
		Scan(&st.UserID, &st.EntryID, &pausedAt, &st.PausedSeconds, &breakEndAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SessionState{}, fmt.Errorf("session state for %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return models.SessionState{}, err
	}

	if st.PausedAt, err = parseNullTime(pausedAt); err != nil {
		return models.SessionState{}, fmt.Errorf("parsing paused_at: %w", err)
	}
	if st.BreakEndAt, err = parseNullTime(breakEndAt); err != nil {
		return models.SessionState{}, fmt.Errorf("parsing break_end_at: %w", err)
	}
	if st.UpdatedAt, err = time.Parse(tsLayout, updated); err != nil {
		return models.SessionState{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return st, nil
}

func (s *Store) SaveSessionState(st models.SessionState) error {
	if st.UserID == "" || st.EntryID == "" {
		return fmt.Errorf("session state needs a user and an entry")
	}
	_, err := s.db.Exec(`INSERT INTO session_state (user_id, entry_id, paused_at, paused_seconds, break_end_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			entry_id = excluded.entry_id,
			paused_at = excluded.paused_at,
			paused_seconds = excluded.paused_seconds,
			break_end_at = excluded.break_end_at,
			updated_at = excluded.updated_at`,
		st.UserID, st.EntryID, formatNullTime(st.PausedAt), st.PausedSeconds, formatNullTime(st.BreakEndAt),
		formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

func (s *Store) ClearSessionState(userID string) error {
	if _, err := s.db.Exec(`DELETE FROM session_state WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}
