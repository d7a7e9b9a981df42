package models

import "time"

// SessionState is the persisted accumulator of the live session. Together
// with the open entry it is enough to rebuild the session after a reload.
type SessionState struct {
	UserID        string     `json:"user_id"`
	EntryID       string     `json:"entry_id"`
	PausedAt      *time.Time `json:"paused_at,omitempty"`
	PausedSeconds int64      `json:"paused_seconds"`
	BreakEndAt    *time.Time `json:"break_end_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
