package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
)

// TimeEntry is one continuous, possibly still open, span of work.
type TimeEntry struct {
	ID           string                `json:"id" yaml:"id"`
	UserID       string                `json:"user_id" yaml:"user_id"`
	Start        time.Time             `json:"start" yaml:"start"`
	End          *time.Time            `json:"end,omitempty" yaml:"end,omitempty"` // nil while the entry is open
	BreakMinutes int                   `json:"break_minutes" yaml:"break_minutes"`
	Project      string                `json:"project,omitempty" yaml:"project,omitempty"`
	Location     string                `json:"location,omitempty" yaml:"location,omitempty"`
	Note         string                `json:"note,omitempty" yaml:"note,omitempty"`
	CostCenter   string                `json:"cost_center,omitempty" yaml:"cost_center,omitempty"`
	Category     constants.Category    `json:"category,omitempty" yaml:"category,omitempty"`
	Status       constants.EntryStatus `json:"status" yaml:"status"`
	CreatedAt    time.Time             `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at" yaml:"updated_at"`
	ArchivedAt   *time.Time            `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
	DeletedAt    *time.Time            `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}

// IsOpen reports whether the entry has no end yet
func (e TimeEntry) IsOpen() bool {
	return e.End == nil
}

// IsArchived reports whether the store has locked the entry
func (e TimeEntry) IsArchived() bool {
	return e.ArchivedAt != nil
}

// EndOr returns the entry end, or fallback for open entries. The fallback is
// a display value only and must never be written back.
func (e TimeEntry) EndOr(fallback time.Time) time.Time {
	if e.End != nil {
		return *e.End
	}
	return fallback
}

// Validate checks the write-time invariants of an entry.
func (e TimeEntry) Validate() error {
	var problems []string
	if e.Start.IsZero() {
		problems = append(problems, "start is required")
	}
	if e.BreakMinutes < 0 {
		problems = append(problems, "break minutes must not be negative")
	}
	if e.End != nil && !e.Start.IsZero() {
		if e.End.Before(e.Start) {
			problems = append(problems, "end must not be before start")
		} else if span := e.End.Sub(e.Start); time.Duration(e.BreakMinutes)*time.Minute > span {
			problems = append(problems, fmt.Sprintf("break of %d minutes exceeds the %d minute span", e.BreakMinutes, int(span.Minutes())))
		}
	}
	switch e.Status {
	case constants.StatusActive, constants.StatusPaused, constants.StatusCompleted, constants.StatusCancelled:
	default:
		problems = append(problems, fmt.Sprintf("unknown status %q", e.Status))
	}
	if e.End == nil && (e.Status == constants.StatusCompleted || e.Status == constants.StatusCancelled) {
		problems = append(problems, fmt.Sprintf("%s entry must have an end", e.Status))
	}
	if len(problems) > 0 {
		return &derrors.ValidationError{Problems: problems}
	}
	return nil
}

// EntryDraft is what callers hand to the store to create an entry; the store
// assigns the id and timestamps.
type EntryDraft struct {
	UserID       string
	Start        time.Time
	End          *time.Time
	BreakMinutes int
	Project      string
	Location     string
	Note         string
	CostCenter   string
	Category     constants.Category
	Status       constants.EntryStatus
}

// Entry builds the TimeEntry a draft describes, without store-assigned fields
func (d EntryDraft) Entry() TimeEntry {
	return TimeEntry{
		UserID:       d.UserID,
		Start:        d.Start,
		End:          d.End,
		BreakMinutes: d.BreakMinutes,
		Project:      d.Project,
		Location:     d.Location,
		Note:         d.Note,
		CostCenter:   d.CostCenter,
		Category:     d.Category,
		Status:       d.Status,
	}
}

// EntryPatch is a partial update; nil fields are left untouched.
type EntryPatch struct {
	Start        *time.Time
	End          *time.Time
	BreakMinutes *int
	Project      *string
	Location     *string
	Note         *string
	CostCenter   *string
	Category     *constants.Category
	Status       *constants.EntryStatus
}

// Apply returns a copy of e with the patch applied
func (p EntryPatch) Apply(e TimeEntry) TimeEntry {
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		end := *p.End
		e.End = &end
	}
	if p.BreakMinutes != nil {
		e.BreakMinutes = *p.BreakMinutes
	}
	if p.Project != nil {
		e.Project = *p.Project
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	if p.CostCenter != nil {
		e.CostCenter = *p.CostCenter
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	return e
}

// EntryFilter selects entries from the store. Zero values mean "any".
type EntryFilter struct {
	UserID         string
	From           time.Time // inclusive, compared against start
	To             time.Time // exclusive, compared against start
	Statuses       []constants.EntryStatus
	OpenOnly       bool
	IncludeDeleted bool
}
