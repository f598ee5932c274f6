package events

import "time"

// Event is an entry in the events catalog. OrganizerID never changes
// after creation, and Approved only ever transitions false to true.
type Event struct {
	// ID is the internal storage identifier; ULID is the public one.
	ID             string     `json:"-"`
	ULID           string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Date           time.Time  `json:"date"`
	Location       string     `json:"location"`
	OrganizerID    string     `json:"organizerId"`
	OrganizerEmail string     `json:"organizerEmail,omitempty"`
	Approved       bool       `json:"approved"`
	CreatedAt      time.Time  `json:"createdAt"`
	Attendees      []Attendee `json:"rsvps,omitempty"`
}

// Attendee is the minimal RSVP view joined into event listings.
type Attendee struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateInput carries the organizer-supplied fields of a new event.
type CreateInput struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
}

// UpdateInput is a partial patch. Nil fields are left unchanged.
// Approved and OrganizerID are deliberately absent: approval has its
// own transition and ownership is immutable.
type UpdateInput struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
}
