package types

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// PIPELINE ERRORS
// =============================================================================
// Structural failures abort a run. Row-level quality problems are reported
// through validation.Report instead and never surface here.

var (
	// ErrHeaderNotFound means no row of the invoice grid carries the marker token.
	ErrHeaderNotFound = errors.New("header row not found")

	// ErrNoValidSheet means no worksheet carries all mandatory settlement columns.
	ErrNoValidSheet = errors.New("no valid worksheet")

	// ErrAmbiguousSheet means several worksheets qualify and the caller must pick one.
	ErrAmbiguousSheet = errors.New("ambiguous worksheet")

	// ErrMalformedAmount means an amount cell has a non-numeric remainder after cleanup.
	ErrMalformedAmount = errors.New("malformed amount")

	// ErrDuplicateColumnName means header flattening produced the same name twice.
	ErrDuplicateColumnName = errors.New("duplicate column name")

	// ErrMissingColumn means a column the pipeline reads is absent.
	ErrMissingColumn = errors.New("missing column")

	// ErrInvalidDateRange means the start date is after the end date or not a date.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrUnsupportedFormat means the document extension has no reader.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// AmbiguousSheetError lists the candidate worksheets.
type AmbiguousSheetError struct {
	Candidates []string
}

func (e *AmbiguousSheetError) Error() string {
	return fmt.Sprintf("%v: %d candidates (%s)", ErrAmbiguousSheet, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousSheetError) Unwrap() error { return ErrAmbiguousSheet }

// AmountError locates a malformed amount.
type AmountError struct {
	Row    int
	Column string
	Value  string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("%v: row %d, column '%s' (value: '%s')", ErrMalformedAmount, e.Row, e.Column, e.Value)
}

func (e *AmountError) Unwrap() error { return ErrMalformedAmount }

// DuplicateColumnError names the colliding column.
type DuplicateColumnError struct {
	Name string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("%v: '%s'", ErrDuplicateColumnName, e.Name)
}

func (e *DuplicateColumnError) Unwrap() error { return ErrDuplicateColumnName }

// MissingColumnError names an absent column.
func MissingColumnError(name string) error {
	return fmt.Errorf("%w: '%s'", ErrMissingColumn, name)
}
