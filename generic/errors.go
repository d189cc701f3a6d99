/*
errors.go - Centralized error types for the finance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Calculator packages and the configuration factory wrap these errors
  with additional context.

ERROR CATEGORIES:
  1. Malformed input - bad date strings (monetary strings never error,
     they coerce to zero)
  2. Invariant violations - split percentages, rates, closing days.
     Raised at configuration-write time, never during aggregation.
  3. Lookup errors - missing sharing modes, records

USAGE:
  if errors.Is(err, generic.ErrInvalidDateFormat) {
      // surface a row-level warning
  }

SEE ALSO:
  - period.go: Returns DateFormatError and ErrInvalidClosingDay
  - split.go: Returns SplitError
  - factory/config.go: Wraps these errors with the offending document
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateFormat is returned when a date string matches neither
	// YYYY-MM-DD nor DD/MM/YYYY.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrInvalidClosingDay is returned when a card closing day is outside [1,31].
	ErrInvalidClosingDay = errors.New("closing day must be between 1 and 31")

	// ErrInvalidSplit is returned when split percentages are out of range or
	// do not sum to 100.
	ErrInvalidSplit = errors.New("invalid split percentages")

	// ErrInvalidRate is returned when a tax rate or threshold is negative.
	ErrInvalidRate = errors.New("invalid rate")

	// ErrUnknownTaxKind is returned when a tax kind name is not recognised.
	ErrUnknownTaxKind = errors.New("unknown tax kind")

	// ErrSharingModeNotFound is returned when a referenced sharing mode doesn't exist.
	ErrSharingModeNotFound = errors.New("sharing mode not found")

	// ErrNotFound is returned when a stored record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPeriod is returned when a period key is malformed.
	ErrInvalidPeriod = errors.New("invalid period")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateFormatError records the input that could not be parsed.
type DateFormatError struct {
	Input string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid date format: %q (want YYYY-MM-DD or DD/MM/YYYY)", e.Input)
}

func (e *DateFormatError) Unwrap() error {
	return ErrInvalidDateFormat
}

// SplitError provides details about a split invariant violation.
type SplitError struct {
	ModeID SharingModeID
	PartyA string
	PartyB string
	Reason string
}

func (e *SplitError) Error() string {
	if e.ModeID != "" {
		return fmt.Sprintf("invalid split for mode %s: %s/%s: %s", e.ModeID, e.PartyA, e.PartyB, e.Reason)
	}
	return fmt.Sprintf("invalid split %s/%s: %s", e.PartyA, e.PartyB, e.Reason)
}

func (e *SplitError) Unwrap() error {
	return ErrInvalidSplit
}

// Warning is a row-level problem found while aggregating. Aggregations
// never fail on bad rows; they skip or zero them and report a Warning.
type Warning struct {
	RecordID string
	Field    string
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s.%s: %s", w.RecordID, w.Field, w.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateFormat) ||
		errors.Is(err, ErrInvalidClosingDay) ||
		errors.Is(err, ErrInvalidSplit) ||
		errors.Is(err, ErrInvalidRate) ||
		errors.Is(err, ErrUnknownTaxKind) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSharingModeNotFound)
}
