package ledger

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrUnavailable   = errors.New("ledger unavailable")
	ErrReleaseFailed = errors.New("reservation release failed")
)
