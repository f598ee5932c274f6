package rsvps

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherhall/server/internal/auth"
	"github.com/gatherhall/server/internal/domain/events"
	"github.com/gatherhall/server/internal/realtime"
	"github.com/rs/zerolog"
)

// EventSource resolves public event ids. The events repository
// satisfies it.
type EventSource interface {
	GetByULID(ctx context.Context, ulid string) (*events.Event, error)
}

// Broadcaster receives NEW_RSVP fan-out messages.
type Broadcaster interface {
	Publish(msg realtime.Message)
}

// BroadcastPayload is the NEW_RSVP message body: the record joined with
// identifying fields of the actor and event.
type BroadcastPayload struct {
	RSVP  *RSVP         `json:"rsvp"`
	Event *events.Event `json:"event"`
}

type Service struct {
	repo        Repository
	eventSource EventSource
	broadcaster Broadcaster
	logger      zerolog.Logger
}

func NewService(repo Repository, eventSource EventSource, broadcaster Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		eventSource: eventSource,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "rsvps").Logger(),
	}
}

// Create records the actor's attendance for an approved event. Any
// authenticated actor may RSVP. There is no cancel operation; the
// ledger is append-only.
func (s *Service) Create(ctx context.Context, actor *auth.Claims, eventULID string) (*RSVP, error) {
	if actor == nil {
		return nil, ErrEventNotFound
	}

	event, err := s.eventSource.GetByULID(ctx, eventULID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("resolve event: %w", err)
	}
	if !event.Approved {
		return nil, ErrEventNotFound
	}

	// Uniqueness is enforced by the store, not by a separate read, so
	// concurrent attempts cannot both pass a pre-check.
	record, err := s.repo.Create(ctx, actor.UserID(), event.ID)
	if err != nil {
		if errors.Is(err, ErrAlreadyRSVPed) {
			return nil, ErrAlreadyRSVPed
		}
		return nil, fmt.Errorf("create rsvp: %w", err)
	}
	record.EventULID = event.ULID

	s.broadcaster.Publish(realtime.Message{
		Type:    realtime.TypeNewRSVP,
		Payload: BroadcastPayload{RSVP: record, Event: event},
	})
	s.logger.Info().Str("event", event.ULID).Str("user", record.UserID).Msg("rsvp recorded")
	return record, nil
}
