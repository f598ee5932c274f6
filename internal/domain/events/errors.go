package events

import "errors"

var (
	// ErrNotFound is returned before any ownership check when the
	// target event does not exist.
	ErrNotFound = errors.New("event not found")

	// ErrForbidden is returned when the actor is authenticated but the
	// policy denies the transition.
	ErrForbidden = errors.New("not allowed")

	// ErrInvalidInput is returned for missing or malformed event fields.
	ErrInvalidInput = errors.New("invalid event input")
)
