package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/custodian/internal/domain"
)

var (
	// ErrNotAccessible indicates the target pose or object cannot be reached.
	ErrNotAccessible = errors.New("target not accessible")

	// ErrServiceUnavailable indicates the action server is unreachable.
	ErrServiceUnavailable = errors.New("action server unavailable")

	// ErrTimeout indicates the action server did not answer in time.
	ErrTimeout = errors.New("action request timed out")

	// ErrActionFailed indicates the server ran the action and reported failure.
	ErrActionFailed = errors.New("action failed")
)

// Classify maps a gateway error onto the run's failure categories.
// Unreachable targets become domain.ErrResourceUnavailable, everything else
// domain.ErrServiceFailure. Context errors and already classified errors are
// returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, domain.ErrResourceUnavailable), errors.Is(err, domain.ErrServiceFailure):
		return err
	case errors.Is(err, ErrNotAccessible):
		return fmt.Errorf("%w: %w", domain.ErrResourceUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrServiceFailure, err)
	}
}

// Err converts a non-successful outcome into an error.
func (o Outcome) Err() error {
	switch o.Status {
	case OutcomeSucceeded:
		return nil
	case OutcomeNotAccessible:
		if o.Message == "" {
			return ErrNotAccessible
		}
		return fmt.Errorf("%w: %s", ErrNotAccessible, o.Message)
	default:
		if o.Message == "" {
			return ErrActionFailed
		}
		return fmt.Errorf("%w: %s", ErrActionFailed, o.Message)
	}
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrServiceUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrNotAccessible):
		return "NOT_ACCESSIBLE"
	case errors.Is(err, ErrActionFailed):
		return "ACTION_FAILED"
	default:
		return "UNKNOWN"
	}
}
