package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUploadNotFound = fmt.Errorf("%w: upload", ErrNotFound)

	// Loader errors
	ErrMissingFile    = errors.New("results file not found")
	ErrMalformedTable = errors.New("malformed results table")

	// ErrEmptyResult marks a filter that matched nothing. It is informational:
	// an empty view is a valid state and is never returned as a failure.
	ErrEmptyResult = errors.New("no rows match the active filter")
)

// MissingFileError reports a results path that does not resolve.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingFile, e.Path)
}

func (e *MissingFileError) Unwrap() error { return ErrMissingFile }

// MalformedTableError reports a header or row that could not be parsed.
// Line is 1-based and counts the header; zero means the table as a whole.
type MalformedTableError struct {
	Source string
	Line   int
	Column string
	Reason string
}

func (e *MalformedTableError) Error() string {
	msg := ErrMalformedTable.Error()
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d", e.Line)
		if e.Column != "" {
			msg += ", column " + e.Column
		}
		msg += ")"
	} else if e.Column != "" {
		msg += fmt.Sprintf(" (column %s)", e.Column)
	}
	return msg + ": " + e.Reason
}

func (e *MalformedTableError) Unwrap() error { return ErrMalformedTable }

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewMalformedTableError(source string, line int, column, format string, args ...interface{}) error {
	return &MalformedTableError{
		Source: source,
		Line:   line,
		Column: column,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsLoadError(err error) bool {
	return errors.Is(err, ErrMissingFile) || errors.Is(err, ErrMalformedTable)
}
