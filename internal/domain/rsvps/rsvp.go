package rsvps

import (
	"errors"
	"time"
)

// RSVP is an append-only attendance record. At most one exists per
// (user, event) pair; it never outlives its event.
type RSVP struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserEmail string    `json:"userEmail,omitempty"`
	EventULID string    `json:"eventId"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	// ErrEventNotFound covers both a missing event and an unapproved
	// one; callers cannot distinguish the two.
	ErrEventNotFound = errors.New("event not found or not approved")

	// ErrAlreadyRSVPed is returned when the (user, event) pair already
	// has a record.
	ErrAlreadyRSVPed = errors.New("already rsvped to this event")
)
