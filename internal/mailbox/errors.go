package mailbox

import (
	"errors"
	"fmt"
)

// Rejection and read-outcome errors. All are request-scoped and non-fatal;
// the API layer maps them to stable response codes.
var (
	// ErrInvalidPayload means a required position field was missing or
	// not numeric.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrOutOfRange means latitude or longitude is outside geographic
	// bounds.
	ErrOutOfRange = errors.New("lat/lon out of range")

	// ErrAccuracyTooPoor means the reported horizontal accuracy exceeds
	// the configured ceiling.
	ErrAccuracyTooPoor = errors.New("gps accuracy too poor")

	// ErrInvalidCommand means the command is not in the allowed set.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrNotFound means the position mailbox has never been written.
	ErrNotFound = errors.New("no target")

	// ErrStale means the last accepted position exceeds the age ceiling.
	// The stored record is left untouched.
	ErrStale = errors.New("target stale")
)

// AccuracyError carries the offending accuracy value for diagnostics.
// It unwraps to ErrAccuracyTooPoor so callers can branch with errors.Is.
type AccuracyError struct {
	AccuracyM float64
}

func (e *AccuracyError) Error() string {
	return fmt.Sprintf("gps accuracy too poor (%.1fm)", e.AccuracyM)
}

func (e *AccuracyError) Unwrap() error {
	return ErrAccuracyTooPoor
}
