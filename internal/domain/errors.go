package domain

import "errors"

// Failure categories. Component errors wrap one of these so callers can
// decide between aborting the run and isolating the failure to one room.
var (
	// ErrConfiguration is fatal for the run (e.g. no assignment for today).
	ErrConfiguration = errors.New("configuration error")

	// ErrResourceUnavailable marks a room or target that cannot be reached.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrServiceFailure marks an external action call that errored.
	ErrServiceFailure = errors.New("service failure")

	// ErrInvariantViolation indicates corrupted persisted data.
	ErrInvariantViolation = errors.New("internal invariant violation")
)

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrInvariantViolation)
}
