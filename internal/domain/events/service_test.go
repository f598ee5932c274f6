package events

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gatherhall/server/internal/auth"
	"github.com/gatherhall/server/internal/realtime"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu     sync.Mutex
	events map[string]*Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{events: make(map[string]*Event)}
}

func (r *fakeRepo) Create(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *event
	r.events[event.ULID] = &copied
	return nil
}

func (r *fakeRepo) GetByULID(_ context.Context, ulid string) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[ulid]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeRepo) List(_ context.Context, filters Filters) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]Event, 0, len(r.events))
	for _, event := range r.events {
		if filters.ApprovedOnly && !event.Approved {
			continue
		}
		items = append(items, *event)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (r *fakeRepo) Update(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.events[event.ULID]
	if !ok {
		return ErrNotFound
	}
	copied := *event
	// Persisted approval and ownership are never touched by Update.
	copied.Approved = existing.Approved
	copied.OrganizerID = existing.OrganizerID
	r.events[event.ULID] = &copied
	return nil
}

func (r *fakeRepo) SetApproved(_ context.Context, ulid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[ulid]
	if !ok {
		return ErrNotFound
	}
	event.Approved = true
	return nil
}

func (r *fakeRepo) DeleteCascade(_ context.Context, ulid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[ulid]; !ok {
		return ErrNotFound
	}
	delete(r.events, ulid)
	return nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []realtime.Message
}

func (b *recordingBroadcaster) Publish(msg realtime.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *recordingBroadcaster) types() []realtime.MessageType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.MessageType, 0, len(b.messages))
	for _, msg := range b.messages {
		out = append(out, msg.Type)
	}
	return out
}

func newTestService() (*Service, *fakeRepo, *recordingBroadcaster) {
	repo := newFakeRepo()
	broadcaster := &recordingBroadcaster{}
	return NewService(repo, broadcaster, zerolog.Nop()), repo, broadcaster
}

func validInput() CreateInput {
	return CreateInput{
		Title:       "Jazz Night",
		Description: "Live quartet",
		Date:        time.Date(2026, 10, 1, 19, 0, 0, 0, time.UTC),
		Location:    "Main Hall",
	}
}

func TestCreateStartsPending(t *testing.T) {
	service, _, broadcaster := newTestService()
	ctx := context.Background()

	event, err := service.Create(ctx, claims("org-1", auth.RoleOrganizer), validInput())
	require.NoError(t, err)
	require.False(t, event.Approved, "new events start pending")
	require.Equal(t, "org-1", event.OrganizerID)
	require.NotEmpty(t, event.ULID)
	require.Equal(t, []realtime.MessageType{realtime.TypeNewEvent}, broadcaster.types())
}

func TestCreateForbiddenForAttendee(t *testing.T) {
	service, _, broadcaster := newTestService()

	_, err := service.Create(context.Background(), claims("u1", auth.RoleAttendee), validInput())
	require.ErrorIs(t, err, ErrForbidden)
	require.Empty(t, broadcaster.types(), "denied transitions never broadcast")
}

func TestCreateRequiresTitle(t *testing.T) {
	service, _, _ := newTestService()

	input := validInput()
	input.Title = "  "
	_, err := service.Create(context.Background(), claims("org-1", auth.RoleOrganizer), input)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateSanitizesInput(t *testing.T) {
	service, _, _ := newTestService()

	input := validInput()
	input.Title = `Jazz <script>alert('x')</script>Night`
	input.Description = `<p>ok</p><script>bad()</script>`
	event, err := service.Create(context.Background(), claims("org-1", auth.RoleOrganizer), input)
	require.NoError(t, err)
	require.NotContains(t, event.Title, "<script>")
	require.NotContains(t, event.Description, "<script>")
}

func TestListScopesByRole(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()

	organizer := claims("org-1", auth.RoleOrganizer)
	pending, err := service.Create(ctx, organizer, validInput())
	require.NoError(t, err)
	approvedEvent, err := service.Create(ctx, organizer, validInput())
	require.NoError(t, err)
	require.NoError(t, repo.SetApproved(ctx, approvedEvent.ULID))

	// Organizer's own pending event is excluded from their own view.
	visible, err := service.List(ctx, organizer)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, approvedEvent.ULID, visible[0].ULID)

	all, err := service.List(ctx, claims("a", auth.RoleAdmin))
	require.NoError(t, err)
	require.Len(t, all, 2)

	_ = pending
}

func TestUpdateMutableFieldsOnly(t *testing.T) {
	service, repo, broadcaster := newTestService()
	ctx := context.Background()
	organizer := claims("org-1", auth.RoleOrganizer)

	event, err := service.Create(ctx, organizer, validInput())
	require.NoError(t, err)
	require.NoError(t, repo.SetApproved(ctx, event.ULID))

	newTitle := "Jazz Night (rescheduled)"
	newDate := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)
	updated, err := service.Update(ctx, organizer, event.ULID, UpdateInput{Title: &newTitle, Date: &newDate})
	require.NoError(t, err)
	require.Equal(t, newTitle, updated.Title)
	require.Equal(t, newDate, updated.Date)
	require.Equal(t, "Live quartet", updated.Description, "unset patch fields stay put")

	stored, err := repo.GetByULID(ctx, event.ULID)
	require.NoError(t, err)
	require.True(t, stored.Approved, "update must not touch approval")
	require.Equal(t, "org-1", stored.OrganizerID, "update must not touch ownership")
	require.Contains(t, broadcaster.types(), realtime.TypeUpdateEvent)
}

func TestUpdateForbiddenForNonOwner(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	event, err := service.Create(ctx, claims("org-1", auth.RoleOrganizer), validInput())
	require.NoError(t, err)

	title := "hijacked"
	_, err = service.Update(ctx, claims("org-2", auth.RoleOrganizer), event.ULID, UpdateInput{Title: &title})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = service.Update(ctx, claims("org-2", auth.RoleAdmin), event.ULID, UpdateInput{Title: &title})
	require.NoError(t, err, "admin satisfies the ownership check")
}

func TestUpdateMissingEventIsNotFoundBeforeOwnership(t *testing.T) {
	service, _, _ := newTestService()

	title := "x"
	_, err := service.Update(context.Background(), claims("nobody", auth.RoleAttendee), "01HQZX3Y4K6F7G8H9J0K1M2N3P", UpdateInput{Title: &title})
	require.ErrorIs(t, err, ErrNotFound, "existence check precedes ownership check")
}

func TestApproveIsOneWayAndRebroadcasts(t *testing.T) {
	service, repo, broadcaster := newTestService()
	ctx := context.Background()
	admin := claims("a", auth.RoleAdmin)

	event, err := service.Create(ctx, claims("org-1", auth.RoleOrganizer), validInput())
	require.NoError(t, err)

	approved, err := service.Approve(ctx, admin, event.ULID)
	require.NoError(t, err)
	require.True(t, approved.Approved)

	// Idempotent state change, non-idempotent notification.
	again, err := service.Approve(ctx, admin, event.ULID)
	require.NoError(t, err)
	require.True(t, again.Approved)

	stored, err := repo.GetByULID(ctx, event.ULID)
	require.NoError(t, err)
	require.True(t, stored.Approved)

	approvals := 0
	for _, typ := range broadcaster.types() {
		if typ == realtime.TypeApproveEvent {
			approvals++
		}
	}
	require.Equal(t, 2, approvals)
}

func TestApproveForbiddenForNonAdmin(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	event, err := service.Create(ctx, claims("org-1", auth.RoleOrganizer), validInput())
	require.NoError(t, err)

	_, err = service.Approve(ctx, claims("org-1", auth.RoleOrganizer), event.ULID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestApprovedNeverReverts(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()
	organizer := claims("org-1", auth.RoleOrganizer)
	admin := claims("a", auth.RoleAdmin)

	event, err := service.Create(ctx, organizer, validInput())
	require.NoError(t, err)
	_, err = service.Approve(ctx, admin, event.ULID)
	require.NoError(t, err)

	// Exercise every remaining transition and confirm approval holds.
	title := "renamed"
	date := time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC)
	location := "Annex"
	transitions := []UpdateInput{
		{Title: &title},
		{Date: &date},
		{Location: &location},
		{Title: &title, Date: &date, Location: &location},
	}
	for _, patch := range transitions {
		_, err := service.Update(ctx, organizer, event.ULID, patch)
		require.NoError(t, err)
		stored, err := repo.GetByULID(ctx, event.ULID)
		require.NoError(t, err)
		require.True(t, stored.Approved, "approved must never revert to false")
	}
}

func TestDeleteBroadcastsIDOnly(t *testing.T) {
	service, repo, broadcaster := newTestService()
	ctx := context.Background()
	organizer := claims("org-1", auth.RoleOrganizer)

	event, err := service.Create(ctx, organizer, validInput())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, organizer, event.ULID))

	_, err = repo.GetByULID(ctx, event.ULID)
	require.ErrorIs(t, err, ErrNotFound)

	last := broadcaster.messages[len(broadcaster.messages)-1]
	require.Equal(t, realtime.TypeDeleteEvent, last.Type)
	require.Equal(t, map[string]string{"id": event.ULID}, last.Payload)
}

func TestDeleteForbiddenForNonOwner(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	event, err := service.Create(ctx, claims("org-1", auth.RoleOrganizer), validInput())
	require.NoError(t, err)

	err = service.Delete(ctx, claims("org-2", auth.RoleOrganizer), event.ULID)
	require.ErrorIs(t, err, ErrForbidden)

	err = service.Delete(ctx, claims("root", auth.RoleAdmin), event.ULID)
	require.NoError(t, err)
}

func TestDeleteMissingEvent(t *testing.T) {
	service, _, _ := newTestService()

	err := service.Delete(context.Background(), claims("a", auth.RoleAdmin), "01HQZX3Y4K6F7G8H9J0K1M2N3P")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestErrorsDoNotWrapEachOther(t *testing.T) {
	require.False(t, errors.Is(ErrForbidden, ErrNotFound))
	require.False(t, errors.Is(ErrInvalidInput, ErrForbidden))
}
