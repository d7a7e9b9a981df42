// Package keyring keeps the PostgreSQL connection string in the OS keyring
// so it never lands in daylog.conf.
package keyring

import (
	"errors"
	"fmt"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/daylog/internal/constants"
)

var (
	// ErrNotFound is returned when nothing is stored for daylog
	ErrNotFound = errors.New("no connection string stored in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be reached
	ErrUnavailable = errors.New("OS keyring is not available")
)

// probeUser is read to check availability; nothing is ever written under it
const probeUser = "availability-probe"

// Status describes what the keyring currently holds
type Status struct {
	Available bool
	Stored    bool
}

// ConnString returns the stored connection string.
func ConnString() (string, error) {
	connStr, err := gokeyring.Get(constants.AppName, constants.DefaultKeyringUser)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return connStr, nil
}

// SaveConnString stores connStr, replacing any previous value. validate
// runs first so a rejected string is never persisted; it may be nil.
func SaveConnString(connStr string, validate func(string) error) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	if validate != nil {
		if err := validate(connStr); err != nil {
			return err
		}
	}
	if err := gokeyring.Set(constants.AppName, constants.DefaultKeyringUser, connStr); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	return nil
}

// DeleteConnString removes the stored connection string.
func DeleteConnString() error {
	err := gokeyring.Delete(constants.AppName, constants.DefaultKeyringUser)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	return nil
}

// Check reports availability and whether a connection string is stored.
// An empty keyring still counts as available.
func Check() Status {
	_, err := gokeyring.Get(constants.AppName, probeUser)
	if err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
		return Status{}
	}
	_, err = ConnString()
	return Status{Available: true, Stored: err == nil}
}
