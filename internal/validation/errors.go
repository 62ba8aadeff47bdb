// =============================================================================
// Sales Aggregator - Error Taxonomy
// =============================================================================
//
// This module defines the typed errors raised while ingesting source files.
//
// SEVERITY:
//   Recoverable (collected into a Summary, never returned individually):
//     - MissingFileError      : a configured source path does not exist
//     - MalformedRowError     : a required field is missing or unreadable
//     - InvalidPriceError     : price text does not match the price grammar
//     - InvalidQuantityError  : quantity is not a non-negative integer
//   Fatal (aborts the run):
//     - IOFatalError          : a file exists but cannot be read, or the
//                               output artifact cannot be written
//
// Row-level errors are wrapped in a RowError carrying the source file and
// line, so callers can use errors.As to recover the underlying kind.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind names used for per-kind counters and log fields.
const (
	KindMissingFile     = "missing_file"
	KindMalformedRow    = "malformed_row"
	KindInvalidPrice    = "invalid_price"
	KindInvalidQuantity = "invalid_quantity"
	KindIOFatal         = "io_fatal"
	KindUnknown         = "unknown"
)

// MissingFileError reports a configured source path that does not exist.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("source file not found: %s", e.Path)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// MalformedRowError reports a row missing a required field, or carrying a
// field that cannot be read (for example an unparseable date).
type MalformedRowError struct {
	Field  string
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row: field '%s' %s", e.Field, e.Reason)
}

// InvalidPriceError reports price text that does not match the price grammar.
type InvalidPriceError struct {
	Value  string
	Reason string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price '%s': %s", e.Value, e.Reason)
}

// InvalidQuantityError reports quantity text that is not a non-negative integer.
type InvalidQuantityError struct {
	Value  string
	Reason string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity '%s': %s", e.Value, e.Reason)
}

// IOFatalError reports a read or write failure that must stop the run.
// Op is what was being attempted ("stat", "open", "read", "write", ...).
type IOFatalError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOFatalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOFatalError) Unwrap() error { return e.Err }

// =============================================================================
// ROW CONTEXT
// =============================================================================

// RowError attaches source location to a row-level failure.
type RowError struct {
	// Source is the path of the file the row came from.
	Source string

	// Line is the 1-indexed line (or sheet row) number of the row.
	Line int

	// Err is the underlying MalformedRowError, InvalidPriceError or
	// InvalidQuantityError.
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// KindOf classifies err into one of the Kind constants.
func KindOf(err error) string {
	var (
		missing   *MissingFileError
		malformed *MalformedRowError
		price     *InvalidPriceError
		quantity  *InvalidQuantityError
		fatal     *IOFatalError
	)

	switch {
	case errors.As(err, &missing):
		return KindMissingFile
	case errors.As(err, &malformed):
		return KindMalformedRow
	case errors.As(err, &price):
		return KindInvalidPrice
	case errors.As(err, &quantity):
		return KindInvalidQuantity
	case errors.As(err, &fatal):
		return KindIOFatal
	default:
		return KindUnknown
	}
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	var fatal *IOFatalError
	return errors.As(err, &fatal)
}
