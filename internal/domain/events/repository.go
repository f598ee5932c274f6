package events

import "context"

// Filters shapes the list query. The zero value returns everything.
type Filters struct {
	ApprovedOnly bool
}

// Repository is the persistence boundary for events. Implementations
// must return ErrNotFound for missing ULIDs and make DeleteCascade a
// single atomic unit (dependent RSVPs removed before the event, or
// nothing at all).
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByULID(ctx context.Context, ulid string) (*Event, error)
	List(ctx context.Context, filters Filters) ([]Event, error)
	Update(ctx context.Context, event *Event) error
	SetApproved(ctx context.Context, ulid string) error
	DeleteCascade(ctx context.Context, ulid string) error
}
