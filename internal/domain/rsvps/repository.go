package rsvps

import "context"

// Repository is the persistence boundary for the RSVP ledger. Create
// must be atomic with respect to the uniqueness invariant: under
// concurrent attempts for the same (user, event) pair exactly one
// succeeds and the rest return ErrAlreadyRSVPed. The returned record
// carries the actor's email so broadcasts need no second lookup.
type Repository interface {
	Create(ctx context.Context, userID, eventID string) (*RSVP, error)
	ListByEvent(ctx context.Context, eventID string) ([]RSVP, error)
}
