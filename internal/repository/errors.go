package repository

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("store unavailable")
	// ErrCommitUnknown marks a write that may or may not have been
	// committed, such as a failed COMMIT or a timed-out single-document
	// insert.
	ErrCommitUnknown = errors.New("commit outcome unknown")
)
