package admin

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEvent  = errors.New("invalid event")
	ErrEventConflict = errors.New("event already exists")
	ErrEventNotFound = errors.New("event not found")
)

// InvalidEventError names the rejected field of a NewEvent.
type InvalidEventError struct {
	Field  string
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidEventError) Unwrap() error {
	return ErrInvalidEvent
}
