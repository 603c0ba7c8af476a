package core

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrInvalidRange   = errors.New("invalid date range")
	ErrEmptyDataset   = errors.New("dataset has no rows")
)

// MalformedInputError reports a source that cannot produce a valid base table.
// Row is the 1-based data row (header excluded), or 0 when the problem is not
// tied to a row.
type MalformedInputError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("malformed input: row %d column %s (%q): %s", e.Row, e.Column, e.Value, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("malformed input: column %s: %s", e.Column, e.Reason)
	default:
		return "malformed input: " + e.Reason
	}
}

func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

// InvalidRangeError is returned when a filter has start after end.
type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start, e.End)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }
