package core

import "errors"

var (
	// ErrUnavailable marks transient collaborator failures: storage errors,
	// timeouts and an open circuit breaker. The request fails as a whole.
	ErrUnavailable = errors.New("feed source unavailable")

	// ErrInvalidPost marks a candidate that violates the data model invariants.
	// Such candidates are skipped, never surfaced.
	ErrInvalidPost = errors.New("invalid post")
)
