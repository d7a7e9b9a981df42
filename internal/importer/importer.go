// Package importer turns spreadsheet rows into time entries. Every row is
// checked against every rule so a row can report several problems at once;
// nothing is written until Commit.
package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
)

// RawRow is one line of an import file as plain strings
type RawRow struct {
	Line         int
	Date         string
	Start        string
	End          string
	BreakMinutes string
	Location     string
	Note         string
	Project      string
}

// IssueKind names the rule a row broke
type IssueKind string

const (
	IssueMissingField     IssueKind = "missing_field"
	IssueInvalidDate      IssueKind = "invalid_date"
	IssueInvalidTime      IssueKind = "invalid_time"
	IssueInvalidBreak     IssueKind = "invalid_break"
	IssueEndBeforeStart   IssueKind = "end_before_start"
	IssueBreakExceedsSpan IssueKind = "break_exceeds_span"
	IssueOverlap          IssueKind = "overlap"
	IssueUnknownLocation  IssueKind = "unknown_location"
)

// Severity separates rejecting errors from advisory warnings
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding on a row
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Field    string    `json:"field,omitempty"`
	Message  string    `json:"message"`
}

// Row is a parsed and validated import line. It is not changed after
// validation.
type Row struct {
	RowNumber    int       `json:"row"`
	Raw          RawRow    `json:"-"`
	Date         time.Time `json:"date"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	BreakMinutes int       `json:"break_minutes"`
	Location     string    `json:"location,omitempty"`
	Note         string    `json:"note,omitempty"`
	Project      string    `json:"project,omitempty"`
	Valid        bool      `json:"valid"`
	Errors       []string  `json:"errors,omitempty"`
	Issues       []Issue   `json:"issues,omitempty"`

	spanOK bool
}

// Warnings returns the advisory issues of the row
func (r Row) Warnings() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == SeverityWarning {
			out = append(out, is)
		}
	}
	return out
}

// HasIssue reports whether the row carries an issue of kind
func (r Row) HasIssue(kind IssueKind) bool {
	for _, is := range r.Issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}

// Err returns the row's errors as a ValidationError, or nil if it is valid
func (r Row) Err() error {
	if r.Valid {
		return nil
	}
	return &derrors.ValidationError{Row: r.RowNumber, Problems: r.Errors}
}

// Draft builds the entry a valid row describes
func (r Row) Draft(userID string) models.EntryDraft {
	end := r.End
	return models.EntryDraft{
		UserID:       userID,
		Start:        r.Start,
		End:          &end,
		BreakMinutes: r.BreakMinutes,
		Project:      r.Project,
		Location:     r.Location,
		Note:         r.Note,
		Status:       constants.StatusCompleted,
	}
}

func (r *Row) add(kind IssueKind, field, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Issues = append(r.Issues, Issue{Kind: kind, Severity: SeverityError, Field: field, Message: msg})
	r.Errors = append(r.Errors, msg)
}

func (r *Row) warn(kind IssueKind, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Severity: SeverityWarning, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validator parses rows in a fixed time zone against a set of known
// locations.
type Validator struct {
	loc   *time.Location
	known map[string]struct{}
}

// NewValidator creates a validator. A nil loc means UTC; nil locations means
// constants.KnownLocations.
func NewValidator(loc *time.Location, locations []string) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	if locations == nil {
		locations = constants.KnownLocations
	}
	known := make(map[string]struct{}, len(locations))
	for _, l := range locations {
		known[strings.ToLower(l)] = struct{}{}
	}
	return &Validator{loc: loc, known: known}
}

var dateLayouts = []string{constants.ImportDateFormat, "2.1.2006"}

// Validate parses and checks a single row on its own.
func (v *Validator) Validate(rowNumber int, raw RawRow) Row {
	row := Row{
		RowNumber: rowNumber,
		Raw:       raw,
		Location:  strings.TrimSpace(raw.Location),
		Note:      strings.TrimSpace(raw.Note),
		Project:   strings.TrimSpace(raw.Project),
	}

	dateStr := strings.TrimSpace(raw.Date)
	startStr := strings.TrimSpace(raw.Start)
	endStr := strings.TrimSpace(raw.End)
	breakStr := strings.TrimSpace(raw.BreakMinutes)

	for _, f := range []struct{ name, value string }{{"date", dateStr}, {"start", startStr}, {"end", endStr}} {
		if f.value == "" {
			row.add(IssueMissingField, f.name, "%s is required", f.name)
		}
	}

	dateOK := false
	if dateStr != "" {
		for _, layout := range dateLayouts {
			if d, err := time.ParseInLocation(layout, dateStr, v.loc); err == nil {
				row.Date, dateOK = d, true
				break
			}
		}
		if !dateOK {
			row.add(IssueInvalidDate, "date", "date %q is not a valid DD.MM.YYYY date", dateStr)
		}
	}

	start, startOK := v.parseClock(&row, "start", startStr)
	end, endOK := v.parseClock(&row, "end", endStr)

	if breakStr != "" {
		n, err := strconv.Atoi(breakStr)
		if err != nil || n < 0 {
			row.add(IssueInvalidBreak, "break", "break %q must be a non-negative number of minutes", breakStr)
		} else {
			row.BreakMinutes = n
		}
	}

	if startOK && endOK {
		switch {
		case end <= start:
			row.add(IssueEndBeforeStart, "end", "end %s is not after start %s", endStr, startStr)
		case time.Duration(row.BreakMinutes)*time.Minute > end-start:
			row.add(IssueBreakExceedsSpan, "break", "break of %d minutes exceeds the %d minute span",
				row.BreakMinutes, int((end-start)/time.Minute))
		}
		if end > start && dateOK {
			row.Start = onDate(row.Date, start, v.loc)
			row.End = onDate(row.Date, end, v.loc)
			row.spanOK = true
		}
	}

	if row.Location != "" {
		if _, ok := v.known[strings.ToLower(row.Location)]; !ok {
			row.warn(IssueUnknownLocation, "location", "unknown location %q", row.Location)
		}
	}

	row.Valid = len(row.Errors) == 0
	return row
}

// ValidateBatch validates rows in order and also flags a row that overlaps
// any earlier row on the same date whose times parsed, valid or not.
func (v *Validator) ValidateBatch(raws []RawRow) []Row {
	rows := make([]Row, 0, len(raws))
	for i, raw := range raws {
		n := raw.Line
		if n <= 0 {
			n = i + 1
		}
		row := v.Validate(n, raw)
		if row.spanOK {
			for _, prev := range rows {
				if !prev.spanOK || !prev.Date.Equal(row.Date) {
					continue
				}
				if row.Start.Before(prev.End) && prev.Start.Before(row.End) {
					row.add(IssueOverlap, "start", "overlaps row %d (%s-%s)", prev.RowNumber,
						prev.Start.Format(constants.TimeFormat), prev.End.Format(constants.TimeFormat))
					break
				}
			}
			row.Valid = len(row.Errors) == 0
		}
		rows = append(rows, row)
	}
	return rows
}

// parseClock parses HH:MM into an offset from midnight
func (v *Validator) parseClock(row *Row, field, value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	t, err := time.Parse(constants.TimeFormat, value)
	if err != nil {
		row.add(IssueInvalidTime, field, "%s %q is not a valid HH:MM time", field, value)
		return 0, false
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, true
}

func onDate(date time.Time, offset time.Duration, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(offset/time.Hour), int(offset%time.Hour/time.Minute), 0, 0, loc)
}

// Counts tallies a validated batch
func Counts(rows []Row) (valid, invalid, warnings int) {
	for _, r := range rows {
		if r.Valid {
			valid++
		} else {
			invalid++
		}
		warnings += len(r.Warnings())
	}
	return valid, invalid, warnings
}
