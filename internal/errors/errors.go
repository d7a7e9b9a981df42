package errors

import (
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/daylog/internal/logger"
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}

// InvalidStateError is returned when a transition is attempted from a state
// that forbids it.
type InvalidStateError struct {
	Action string
	State  string
	// Benign marks idempotent no-ops such as pausing an already paused session.
	Benign bool
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.State)
}

// Is matches any InvalidStateError with the same action and state, so the
// benign sentinels below can be compared with errors.Is.
func (e *InvalidStateError) Is(target error) bool {
	t, ok := target.(*InvalidStateError)
	if !ok {
		return false
	}
	return t.Action == e.Action && t.State == e.State
}

var (
	// ErrAlreadyPaused is the benign result of pausing a paused session
	ErrAlreadyPaused = &InvalidStateError{Action: "pause", State: "paused", Benign: true}
	// ErrNotPaused is the benign result of resuming an active session
	ErrNotPaused = &InvalidStateError{Action: "resume", State: "active", Benign: true}
)

// NewInvalidState creates an InvalidStateError for the given action and state
func NewInvalidState(action, state string) *InvalidStateError {
	return &InvalidStateError{Action: action, State: state}
}

// ValidationError carries every rule violation found, not just the first.
type ValidationError struct {
	Row      int
	Problems []string
}

func (e *ValidationError) Error() string {
	prefix := "validation failed"
	if e.Row > 0 {
		prefix = fmt.Sprintf("row %d: validation failed", e.Row)
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(e.Problems, "; "))
}

// ConflictError is returned when the store rejects a write because of a
// uniqueness violation, e.g. a second open entry.
type ConflictError struct {
	Resource string
	Reason   string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// RangeError is returned for out-of-bounds input such as a break length
// outside the allowed window.
type RangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Field, e.Min, e.Max, e.Value)
}
