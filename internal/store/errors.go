package store

import "errors"

// Sentinel errors returned by store operations. Handlers translate these
// into HTTP status codes instead of inspecting driver errors directly.
var (
	// ErrNotFound is returned when no row matches the given identifier.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a write violates the unique
	// constraint on users.email.
	ErrDuplicateEmail = errors.New("email already registered")
)
