package importer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
)

func validRaw() RawRow {
	return RawRow{Date: "02.03.2026", Start: "09:00", End: "12:00", BreakMinutes: "15", Location: "office", Project: "alpha"}
}

func TestValidateValidRow(t *testing.T) {
	v := NewValidator(time.UTC, nil)
	row := v.Validate(1, validRaw())

	if !row.Valid {
		t.Fatalf("Valid = false, errors = %v", row.Errors)
	}
	if want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC); !row.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", row.Start, want)
	}
	if want := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC); !row.End.Equal(want) {
		t.Errorf("End = %v, want %v", row.End, want)
	}
	if row.BreakMinutes != 15 {
		t.Errorf("BreakMinutes = %d, want 15", row.BreakMinutes)
	}
	if row.Err() != nil {
		t.Errorf("Err() = %v, want nil", row.Err())
	}
}

func TestValidateEndBeforeStartHasOneError(t *testing.T) {
	raw := validRaw()
	raw.Start, raw.End = "12:00", "09:00"

	row := NewValidator(time.UTC, nil).Validate(4, raw)
	if row.Valid {
		t.Fatal("Valid = true, want false")
	}
	if len(row.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", row.Errors)
	}
	if !row.HasIssue(IssueEndBeforeStart) {
		t.Errorf("Issues = %+v, want end_before_start", row.Issues)
	}
	var verr *derrors.ValidationError
	if !errors.As(row.Err(), &verr) || verr.Row != 4 {
		t.Errorf("Err() = %v, want ValidationError for row 4", row.Err())
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	raw := RawRow{Date: "31.02.2026", Start: "", End: "25:99", BreakMinutes: "-5"}
	row := NewValidator(time.UTC, nil).Validate(1, raw)

	for _, kind := range []IssueKind{IssueMissingField, IssueInvalidDate, IssueInvalidTime, IssueInvalidBreak} {
		if !row.HasIssue(kind) {
			t.Errorf("missing issue %s in %+v", kind, row.Issues)
		}
	}
	if len(row.Errors) != 4 {
		t.Errorf("Errors = %v, want 4", row.Errors)
	}
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*RawRow)
		want  IssueKind
		valid bool
	}{
		{"missing date", func(r *RawRow) { r.Date = " " }, IssueMissingField, false},
		{"missing end", func(r *RawRow) { r.End = "" }, IssueMissingField, false},
		{"iso date", func(r *RawRow) { r.Date = "2026-03-02" }, IssueInvalidDate, false},
		{"bad time", func(r *RawRow) { r.Start = "9am" }, IssueInvalidTime, false},
		{"equal times", func(r *RawRow) { r.End = "09:00" }, IssueEndBeforeStart, false},
		{"break exceeds span", func(r *RawRow) { r.BreakMinutes = "181" }, IssueBreakExceedsSpan, false},
		{"break not a number", func(r *RawRow) { r.BreakMinutes = "ten" }, IssueInvalidBreak, false},
		{"unknown location warns", func(r *RawRow) { r.Location = "moon" }, IssueUnknownLocation, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.edit(&raw)
			row := NewValidator(time.UTC, nil).Validate(1, raw)
			if row.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (errors %v)", row.Valid, tt.valid, row.Errors)
			}
			if !row.HasIssue(tt.want) {
				t.Errorf("Issues = %+v, want %s", row.Issues, tt.want)
			}
		})
	}
}

func TestValidateOptionalFields(t *testing.T) {
	raw := RawRow{Date: "2.3.2026", Start: "9:00", End: "17:00"}
	row := NewValidator(time.UTC, nil).Validate(1, raw)
	if !row.Valid {
		t.Fatalf("Valid = false, errors = %v", row.Errors)
	}
	if row.BreakMinutes != 0 || len(row.Warnings()) != 0 {
		t.Errorf("got break %d, warnings %v", row.BreakMinutes, row.Warnings())
	}
}

func TestValidateBatchOverlap(t *testing.T) {
	raws := []RawRow{
		{Date: "02.03.2026", Start: "09:00", End: "12:00"},
		{Date: "02.03.2026", Start: "11:30", End: "13:00"},
		{Date: "02.03.2026", Start: "12:00", End: "13:00"},
		{Date: "03.03.2026", Start: "09:00", End: "12:00"},
	}
	rows := NewValidator(time.UTC, nil).ValidateBatch(raws)

	// row 3 overlaps row 2 even though row 2 is rejected
	want := []bool{true, false, false, true}
	for i, r := range rows {
		if r.Valid != want[i] {
			t.Errorf("row %d Valid = %v, want %v (errors %v)", r.RowNumber, r.Valid, want[i], r.Errors)
		}
	}
	if !rows[1].HasIssue(IssueOverlap) {
		t.Errorf("row 2 issues = %+v, want overlap", rows[1].Issues)
	}
	if !strings.Contains(rows[1].Errors[0], "row 1") {
		t.Errorf("overlap message = %q, want reference to row 1", rows[1].Errors[0])
	}
}

func TestValidateBatchOverlapWithInvalidRow(t *testing.T) {
	raws := []RawRow{
		{Date: "02.03.2026", Start: "09:00", End: "12:00", BreakMinutes: "500"},
		{Date: "02.03.2026", Start: "10:00", End: "11:00"},
		{Date: "02.03.2026", Start: "13:00", End: "12:00"},
		{Date: "02.03.2026", Start: "12:30", End: "13:30"},
	}
	rows := NewValidator(time.UTC, nil).ValidateBatch(raws)

	if rows[0].Valid || !rows[0].HasIssue(IssueBreakExceedsSpan) {
		t.Fatalf("row 1 = %+v, want break_exceeds_span", rows[0].Issues)
	}
	if rows[1].Valid || !rows[1].HasIssue(IssueOverlap) {
		t.Errorf("row 2 issues = %+v, want overlap with the rejected row 1", rows[1].Issues)
	}
	// row 3 has no usable span, so it cannot cause an overlap
	if rows[3].HasIssue(IssueOverlap) || !rows[3].Valid {
		t.Errorf("row 4 = valid %v issues %+v, want valid without overlap", rows[3].Valid, rows[3].Issues)
	}
}

type fakeCreator struct {
	created []models.EntryDraft
	reject  map[time.Time]error
}

func (f *fakeCreator) CreateEntry(d models.EntryDraft) (models.TimeEntry, error) {
	if err, ok := f.reject[d.Start]; ok {
		return models.TimeEntry{}, err
	}
	f.created = append(f.created, d)
	e := d.Entry()
	e.ID = fmt.Sprintf("e%d", len(f.created))
	return e, nil
}

func TestCommitOnlyValidRows(t *testing.T) {
	raws := []RawRow{
		{Date: "02.03.2026", Start: "09:00", End: "12:00"},
		{Date: "02.03.2026", Start: "13:00", End: "12:00"},
		{Date: "03.03.2026", Start: "09:00", End: "17:00", BreakMinutes: "30"},
		{Date: "bad", Start: "09:00", End: "10:00"},
		{Date: "04.03.2026", Start: "08:00", End: "16:00", Location: "moon"},
	}
	rows := NewValidator(time.UTC, nil).ValidateBatch(raws)
	store := &fakeCreator{}

	res, err := Commit(store, "u1", rows)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if len(res.Created) != 3 || len(store.created) != 3 {
		t.Errorf("created %d entries, want 3", len(res.Created))
	}
	if len(res.Skipped) != 2 || res.Skipped[0] != 2 || res.Skipped[1] != 4 {
		t.Errorf("Skipped = %v, want [2 4]", res.Skipped)
	}
	for _, d := range store.created {
		if d.UserID != "u1" || d.End == nil {
			t.Errorf("draft = %+v", d)
		}
	}
}

func TestCommitRecordsConflicts(t *testing.T) {
	rows := NewValidator(time.UTC, nil).ValidateBatch([]RawRow{
		{Date: "02.03.2026", Start: "09:00", End: "10:00"},
		{Date: "02.03.2026", Start: "11:00", End: "12:00"},
	})
	store := &fakeCreator{reject: map[time.Time]error{
		rows[0].Start: &derrors.ConflictError{Resource: "time_entries", Reason: "overlap"},
	}}

	res, err := Commit(store, "u1", rows)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0].Row != 1 {
		t.Errorf("Failed = %+v, want row 1", res.Failed)
	}
	if len(res.Created) != 1 {
		t.Errorf("Created = %d, want 1", len(res.Created))
	}
}

func TestCommitStopsOnStoreFailure(t *testing.T) {
	rows := NewValidator(time.UTC, nil).ValidateBatch([]RawRow{
		{Date: "02.03.2026", Start: "09:00", End: "10:00"},
		{Date: "02.03.2026", Start: "11:00", End: "12:00"},
	})
	store := &fakeCreator{reject: map[time.Time]error{rows[0].Start: errors.New("disk full")}}

	res, err := Commit(store, "u1", rows)
	if err == nil {
		t.Fatal("Commit() expected error")
	}
	if len(res.Created) != 0 {
		t.Errorf("Created = %d, want 0", len(res.Created))
	}
}

func TestCounts(t *testing.T) {
	rows := []Row{
		{Valid: true, Issues: []Issue{{Kind: IssueUnknownLocation, Severity: SeverityWarning}}},
		{Valid: false},
		{Valid: true},
	}
	valid, invalid, warnings := Counts(rows)
	if valid != 2 || invalid != 1 || warnings != 1 {
		t.Errorf("Counts() = %d, %d, %d, want 2, 1, 1", valid, invalid, warnings)
	}
}
