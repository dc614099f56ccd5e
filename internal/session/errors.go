package session

import "errors"

var (
	// ErrSessionNotFound is returned when the session id is unknown, already
	// closed, or expired out of the registry.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTransition is returned when a state change would move a
	// session backwards in its lifecycle.
	ErrInvalidTransition = errors.New("invalid session state transition")
)
