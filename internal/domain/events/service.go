package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gatherhall/server/internal/auth"
	"github.com/gatherhall/server/internal/domain/ids"
	"github.com/gatherhall/server/internal/realtime"
	"github.com/gatherhall/server/internal/sanitize"
	"github.com/rs/zerolog"
)

// Broadcaster receives lifecycle transitions for fan-out to connected
// observers. Publish must not block the caller.
type Broadcaster interface {
	Publish(msg realtime.Message)
}

type Service struct {
	repo        Repository
	broadcaster Broadcaster
	logger      zerolog.Logger
}

func NewService(repo Repository, broadcaster Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "events").Logger(),
	}
}

// Create registers a new event in the pending state. Only organizers
// and admins may create; approval is a separate admin transition.
func (s *Service) Create(ctx context.Context, actor *auth.Claims, input CreateInput) (*Event, error) {
	if !CanCreate(actor) {
		return nil, ErrForbidden
	}

	title := strings.TrimSpace(sanitize.Text(input.Title))
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	ulid, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("mint event id: %w", err)
	}

	event := &Event{
		ULID:        ulid,
		Title:       title,
		Description: sanitize.HTML(input.Description),
		Date:        input.Date,
		Location:    strings.TrimSpace(sanitize.Text(input.Location)),
		OrganizerID: actor.UserID(),
		Approved:    false,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.broadcaster.Publish(realtime.Message{Type: realtime.TypeNewEvent, Payload: event})
	s.logger.Info().Str("event", event.ULID).Str("organizer", event.OrganizerID).Msg("event created")
	return event, nil
}

// List returns events visible to the actor, newest first. Admins see
// everything; everyone else sees only approved events.
func (s *Service) List(ctx context.Context, actor *auth.Claims) ([]Event, error) {
	items, err := s.repo.List(ctx, VisibleScope(actor))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return items, nil
}

// Get returns a single event by its public id.
func (s *Service) Get(ctx context.Context, ulid string) (*Event, error) {
	return s.repo.GetByULID(ctx, ulid)
}

// Update patches the mutable fields of an event. The existence check
// runs before the ownership check so missing events report NotFound,
// not Forbidden.
func (s *Service) Update(ctx context.Context, actor *auth.Claims, ulid string, patch UpdateInput) (*Event, error) {
	event, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}
	if !CanModify(actor, event) {
		return nil, ErrForbidden
	}

	if patch.Title != nil {
		title := strings.TrimSpace(sanitize.Text(*patch.Title))
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		event.Title = title
	}
	if patch.Description != nil {
		event.Description = sanitize.HTML(*patch.Description)
	}
	if patch.Date != nil {
		event.Date = *patch.Date
	}
	if patch.Location != nil {
		event.Location = strings.TrimSpace(sanitize.Text(*patch.Location))
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.broadcaster.Publish(realtime.Message{Type: realtime.TypeUpdateEvent, Payload: event})
	return event, nil
}

// Approve runs the one-way pending-to-approved transition. Re-approving
// an already approved event is a no-op write but still broadcasts, so
// observers always learn the current state.
func (s *Service) Approve(ctx context.Context, actor *auth.Claims, ulid string) (*Event, error) {
	if !CanApprove(actor) {
		return nil, ErrForbidden
	}

	event, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetApproved(ctx, ulid); err != nil {
		return nil, fmt.Errorf("approve event: %w", err)
	}
	event.Approved = true

	s.broadcaster.Publish(realtime.Message{Type: realtime.TypeApproveEvent, Payload: event})
	s.logger.Info().Str("event", ulid).Str("admin", actor.UserID()).Msg("event approved")
	return event, nil
}

// Delete removes the event and all dependent RSVPs in one atomic unit.
// The broadcast carries only the public id, not the former entity.
func (s *Service) Delete(ctx context.Context, actor *auth.Claims, ulid string) error {
	event, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return err
	}
	if !CanModify(actor, event) {
		return ErrForbidden
	}

	if err := s.repo.DeleteCascade(ctx, ulid); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.broadcaster.Publish(realtime.Message{Type: realtime.TypeDeleteEvent, Payload: map[string]string{"id": ulid}})
	s.logger.Info().Str("event", ulid).Str("actor", actor.UserID()).Msg("event deleted")
	return nil
}
