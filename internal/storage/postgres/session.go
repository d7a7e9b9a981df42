package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
)

func (s *Store) GetSessionState(userID string) (models.SessionState, error) {
	var st models.SessionState
	var pausedAt, breakEndAt sql.NullTime

	err := s.db.QueryRow(`SELECT user_id, entry_id, paused_at, paused_seconds, break_end_at, updated_at
		FROM session_state WHERE user_id = $1`, userID).
		Scan(&st.UserID, &st.EntryID, &pausedAt, &st.PausedSeconds, &breakEndAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SessionState{}, fmt.Errorf("session state for %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return models.SessionState{}, err
	}
	st.PausedAt = nullTime(pausedAt)
	st.BreakEndAt = nullTime(breakEndAt)
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, nil
}

func (s *Store) SaveSessionState(st models.SessionState) error {
	if st.UserID == "" || st.EntryID == "" {
		return fmt.Errorf("session state needs a user and an entry")
	}
	_, err := s.db.Exec(`INSERT INTO session_state (user_id, entry_id, paused_at, paused_seconds, break_end_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			entry_id = EXCLUDED.entry_id,
			paused_at = EXCLUDED.paused_at,
			paused_seconds = EXCLUDED.paused_seconds,
			break_end_at = EXCLUDED.break_end_at,
			updated_at = EXCLUDED.updated_at`,
		st.UserID, st.EntryID, st.PausedAt, st.PausedSeconds, st.BreakEndAt, storage.Timestamp(s.now()))
	if err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

func (s *Store) ClearSessionState(userID string) error {
	if _, err := s.db.Exec(`DELETE FROM session_state WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}
