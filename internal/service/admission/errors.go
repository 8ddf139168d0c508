package admission

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrEventNotFound    = errors.New("event not found")
	ErrCapacityExceeded = errors.New("event is fully booked")
	ErrDuplicateBooking = errors.New("participant already booked this event")
	ErrUnavailable      = errors.New("booking temporarily unavailable")

	// ErrCompensationFailed never leaves the service: it is logged and
	// flagged for reconciliation.
	ErrCompensationFailed = errors.New("compensation failed")
)

type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

type CompensationError struct {
	EventID   string
	AttemptID string
	Err       error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed for event %s attempt %s: %v", e.EventID, e.AttemptID, e.Err)
}

func (e *CompensationError) Unwrap() []error {
	return []error{ErrCompensationFailed, e.Err}
}

// Kind is the externally visible outcome of a booking submission.
type Kind string

const (
	KindConfirmed   Kind = "confirmed"
	KindFull        Kind = "full"
	KindDuplicate   Kind = "duplicate"
	KindNotFound    Kind = "not_found"
	KindInvalid     Kind = "invalid"
	KindUnavailable Kind = "unavailable"
)

// KindOf maps the error returned by Submit to its outcome. Errors outside
// the taxonomy are reported as unavailable.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindConfirmed
	case errors.Is(err, ErrInvalidInput):
		return KindInvalid
	case errors.Is(err, ErrEventNotFound):
		return KindNotFound
	case errors.Is(err, ErrCapacityExceeded):
		return KindFull
	case errors.Is(err, ErrDuplicateBooking):
		return KindDuplicate
	default:
		return KindUnavailable
	}
}

// Retryable reports whether resubmitting the same request may succeed.
func (k Kind) Retryable() bool {
	return k == KindUnavailable
}
