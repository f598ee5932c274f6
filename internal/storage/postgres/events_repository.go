package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherhall/server/internal/domain/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ events.Repository = (*EventRepository)(nil)

func (r *EventRepository) Create(ctx context.Context, event *events.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	q := r.queryer()
	err := q.QueryRow(ctx, `
INSERT INTO events (id, ulid, title, description, date, location, organizer_id, approved)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at`,
		event.ID, event.ULID, event.Title, event.Description,
		event.Date, event.Location, event.OrganizerID, event.Approved,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByULID(ctx context.Context, ulid string) (*events.Event, error) {
	q := r.queryer()
	var event events.Event
	err := q.QueryRow(ctx, `
SELECT e.id, e.ulid, e.title, e.description, e.date, e.location,
       e.organizer_id, u.email, e.approved, e.created_at
  FROM events e
  JOIN users u ON u.id = e.organizer_id
 WHERE e.ulid = $1`, ulid,
	).Scan(
		&event.ID, &event.ULID, &event.Title, &event.Description, &event.Date,
		&event.Location, &event.OrganizerID, &event.OrganizerEmail,
		&event.Approved, &event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("query event: %w", err)
	}

	attendees, err := r.attendees(ctx, []string{event.ID})
	if err != nil {
		return nil, err
	}
	event.Attendees = attendees[event.ID]
	return &event, nil
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters) ([]events.Event, error) {
	q := r.queryer()
	rows, err := q.Query(ctx, `
SELECT e.id, e.ulid, e.title, e.description, e.date, e.location,
       e.organizer_id, u.email, e.approved, e.created_at
  FROM events e
  JOIN users u ON u.id = e.organizer_id
 WHERE (NOT $1::boolean OR e.approved)
 ORDER BY e.created_at DESC`, filters.ApprovedOnly)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []events.Event
	var ids []string
	for rows.Next() {
		var event events.Event
		if err := rows.Scan(
			&event.ID, &event.ULID, &event.Title, &event.Description, &event.Date,
			&event.Location, &event.OrganizerID, &event.OrganizerEmail,
			&event.Approved, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, event)
		ids = append(ids, event.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	if len(ids) > 0 {
		attendees, err := r.attendees(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range result {
			result[i].Attendees = attendees[result[i].ID]
		}
	}
	return result, nil
}

func (r *EventRepository) Update(ctx context.Context, event *events.Event) error {
	q := r.queryer()
	tag, err := q.Exec(ctx, `
UPDATE events
   SET title = $2, description = $3, date = $4, location = $5
 WHERE ulid = $1`,
		event.ULID, event.Title, event.Description, event.Date, event.Location)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// SetApproved flips the approval flag on. There is no way to flip it
// back off through this repository.
func (r *EventRepository) SetApproved(ctx context.Context, ulid string) error {
	q := r.queryer()
	tag, err := q.Exec(ctx, `UPDATE events SET approved = TRUE WHERE ulid = $1`, ulid)
	if err != nil {
		return fmt.Errorf("approve event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// DeleteCascade removes the event and its RSVPs in one transaction via
// WithTx. When the repository is already transaction-bound, WithTx
// reuses that transaction instead of opening its own.
func (r *EventRepository) DeleteCascade(ctx context.Context, ulid string) error {
	repo := &Repository{pool: r.pool, tx: r.tx}
	return repo.WithTx(ctx, func(ctx context.Context, txRepo *Repository) error {
		return deleteCascade(ctx, txRepo.tx, ulid)
	})
}

func deleteCascade(ctx context.Context, tx pgx.Tx, ulid string) error {
	if _, err := tx.Exec(ctx, `
DELETE FROM rsvps WHERE event_id = (SELECT id FROM events WHERE ulid = $1)`, ulid); err != nil {
		return fmt.Errorf("delete rsvps: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE ulid = $1`, ulid)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) attendees(ctx context.Context, eventIDs []string) (map[string][]events.Attendee, error) {
	q := r.queryer()
	rows, err := q.Query(ctx, `
SELECT event_id, user_id, created_at
  FROM rsvps
 WHERE event_id = ANY($1)
 ORDER BY created_at`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("query rsvps: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]events.Attendee)
	for rows.Next() {
		var eventID string
		var attendee events.Attendee
		if err := rows.Scan(&eventID, &attendee.UserID, &attendee.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rsvp: %w", err)
		}
		result[eventID] = append(result[eventID], attendee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rsvps: %w", err)
	}
	return result, nil
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
