// Package timezone stores each user's preferred timezone and parses their
// scheduling input relative to it.
package timezone

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrTimezoneNotSet  = errors.New("timezone has not been set")
	ErrUnknownTimezone = errors.New("unknown timezone")
	ErrInvalidTime     = errors.New("invalid time format")
)

// Aliases maps the short zone names offered in the picker to IANA names.
//
//nolint:gochecknoglobals
var Aliases = map[string]string{
	"PST": "US/Pacific",
	"MST": "US/Mountain",
	"CST": "US/Central",
	"EST": "US/Eastern",
}

// Store persists one timezone per user as a small text file under dir. The
// format survives restarts and is trivially editable by hand.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}

	return &Store{dir: dir, now: now}
}

func (s *Store) userFile(userID string) string {
	return filepath.Join(s.dir, userID+".txt")
}

// Get returns the user's stored IANA timezone name.
func (s *Store) Get(userID string) (string, error) {
	body, errRead := os.ReadFile(s.userFile(userID))
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return "", ErrTimezoneNotSet
		}

		return "", fmt.Errorf("failed to read timezone file: %w", errRead)
	}

	return strings.TrimSpace(string(body)), nil
}

// Set stores the user's timezone. Accepts either a short alias from the
// picker or a full IANA name.
func (s *Store) Set(userID string, zone string) error {
	resolved, found := Aliases[strings.ToUpper(zone)]
	if !found {
		if _, errLoad := time.LoadLocation(zone); errLoad != nil {
			return fmt.Errorf("%w: %s", ErrUnknownTimezone, zone)
		}

		resolved = zone
	}

	if errMkdir := os.MkdirAll(s.dir, 0o755); errMkdir != nil {
		return fmt.Errorf("failed to create timezone dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(s.userFile(userID), []byte(resolved), 0o644); errWrite != nil {
		return fmt.Errorf("failed to write timezone file: %w", errWrite)
	}

	return nil
}

// ParseTimeInput resolves a scheduling string in the user's zone. "asap" and
// "now" yield the zero time, meaning start as soon as possible. Clock inputs
// accept `[hour][AM|PM]` and `[hour]:[minutes][AM|PM]`; a time more than 30
// minutes in the past rolls over to tomorrow.
func (s *Store) ParseTimeInput(input string, zone string) (time.Time, error) {
	input = strings.ToUpper(strings.TrimSpace(input))

	if input == "ASAP" || input == "NOW" {
		return time.Time{}, nil
	}

	layout := "3PM"
	if strings.Contains(input, ":") {
		layout = "3:04PM"
	}

	clock, errParse := time.Parse(layout, input)
	if errParse != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTime, input)
	}

	loc, errLoad := time.LoadLocation(zone)
	if errLoad != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownTimezone, zone)
	}

	now := s.now().In(loc)
	target := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)

	if !target.After(now.Add(-time.Minute * 30)) {
		target = target.AddDate(0, 0, 1)
	}

	return target, nil
}
