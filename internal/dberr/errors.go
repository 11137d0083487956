// Package dberr classifies ArmDb's storage-engine errors into the kinds
// described by the specification: contract violations (programmer errors,
// which panic), and five caller-visible kinds (validation, I/O, data
// integrity, resource exhaustion, cancellation) that are returned as
// ordinary wrapped errors.
package dberr

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying each caller-visible error kind. Use
// errors.Is against these to classify a returned error.
var (
	// ErrValidation marks user-visible validation failures: duplicate
	// key on insert, NULL primary-key column, record too large for an
	// empty page, mismatched types in key comparison, unknown table.
	ErrValidation = errors.New("validation error")

	// ErrIO marks errors propagated from the FileSystem: not-found,
	// permission, short read/write, disk full.
	ErrIO = errors.New("i/o error")

	// ErrDataIntegrity marks non-recoverable corruption: a short read on
	// an expected page, a malformed record, or a page header whose
	// declared type does not match the caller's expectation.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrResourceExhausted marks a transient, retry-safe condition: the
	// buffer pool has no unpinned frame to evict.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrCancelled marks a caller-requested cancellation.
	ErrCancelled = errors.New("cancelled")

	// ErrDuplicateKey is a specific ErrValidation case callers commonly
	// need to distinguish (spec.md §4.6 step 3, §8 scenario 2).
	ErrDuplicateKey = fmt.Errorf("duplicate key: %w", ErrValidation)

	// ErrNotFound marks an unknown table/database/column/constraint
	// name lookup (spec.md §7 "unknown table").
	ErrNotFound = fmt.Errorf("not found: %w", ErrValidation)
)

// Validation constructs an error from format and args that wraps
// ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// IO wraps an underlying I/O failure as ErrIO.
func IO(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, err, ErrIO)
}

// DataIntegrity wraps a corruption finding as ErrDataIntegrity.
func DataIntegrity(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDataIntegrity)...)
}

// ResourceExhausted constructs an ErrResourceExhausted.
func ResourceExhausted(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrResourceExhausted)...)
}

// Cancelled wraps a context cancellation as ErrCancelled.
func Cancelled(err error) error {
	return fmt.Errorf("%w: %w", err, ErrCancelled)
}

// ContractViolation is a programmer-error signal: wrong page type,
// pin/unpin mismatch, out-of-range slot index, unknown column. These are
// local assertions and are not expected to be recovered by the caller.
type ContractViolation struct {
	Msg string
}

func (e *ContractViolation) Error() string {
	return "contract violation: " + e.Msg
}

// Violate panics with a ContractViolation. Call this for any condition
// that indicates a bug in the calling code rather than bad input or
// environment failure.
func Violate(format string, args ...any) {
	panic(&ContractViolation{Msg: fmt.Sprintf(format, args...)})
}
