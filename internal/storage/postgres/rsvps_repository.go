package postgres

import (
	"context"
	"fmt"

	"github.com/gatherhall/server/internal/domain/rsvps"
	"github.com/google/uuid"
)

var _ rsvps.Repository = (*RsvpRepository)(nil)

// Create appends one ledger row. The (user, event) unique index decides
// races: under concurrent attempts exactly one insert lands and the
// rest surface ErrAlreadyRSVPed. The actor's email is joined in the
// same statement so the returned record is broadcast-ready.
func (r *RsvpRepository) Create(ctx context.Context, userID, eventID string) (*rsvps.RSVP, error) {
	q := r.queryer()
	record := &rsvps.RSVP{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	err := q.QueryRow(ctx, `
WITH new_rsvp AS (
    INSERT INTO rsvps (id, user_id, event_id)
    VALUES ($1, $2, $3)
    RETURNING user_id, created_at
)
SELECT u.email, new_rsvp.created_at
  FROM new_rsvp
  JOIN users u ON u.id = new_rsvp.user_id`,
		record.ID, userID, eventID,
	).Scan(&record.UserEmail, &record.CreatedAt)
	if err != nil {
		if uniqueViolation(err, "rsvps_user_id_event_id_key") {
			return nil, rsvps.ErrAlreadyRSVPed
		}
		return nil, fmt.Errorf("insert rsvp: %w", err)
	}
	return record, nil
}

func (r *RsvpRepository) ListByEvent(ctx context.Context, eventID string) ([]rsvps.RSVP, error) {
	q := r.queryer()
	rows, err := q.Query(ctx, `
SELECT r.id, r.user_id, u.email, e.ulid, r.created_at
  FROM rsvps r
  JOIN users u ON u.id = r.user_id
  JOIN events e ON e.id = r.event_id
 WHERE r.event_id = $1
 ORDER BY r.created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query rsvps: %w", err)
	}
	defer rows.Close()

	var result []rsvps.RSVP
	for rows.Next() {
		var record rsvps.RSVP
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.UserEmail,
			&record.EventULID, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rsvp: %w", err)
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rsvps: %w", err)
	}
	return result, nil
}

func (r *RsvpRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
