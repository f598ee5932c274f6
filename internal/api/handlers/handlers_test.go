package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gatherhall/server/internal/auth"
	"github.com/gatherhall/server/internal/domain/events"
	"github.com/gatherhall/server/internal/domain/rsvps"
	"github.com/gatherhall/server/internal/domain/users"
	"github.com/gatherhall/server/internal/realtime"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

func testClaims(id string, role auth.Role) *auth.Claims {
	return &auth.Claims{
		Role:             string(role),
		RegisteredClaims: jwt.RegisteredClaims{Subject: id},
	}
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*events.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*events.Event)}
}

func (r *fakeEventRepo) Create(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *event
	r.events[event.ULID] = &copied
	return nil
}

func (r *fakeEventRepo) GetByULID(_ context.Context, ulid string) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[ulid]
	if !ok {
		return nil, events.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) List(_ context.Context, filters events.Filters) ([]events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]events.Event, 0, len(r.events))
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

func (r *fakeEventRepo) Update(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.events[event.ULID]
	if !ok {
		return events.ErrNotFound
	}
	copied := *event
	copied.Approved = existing.Approved
	copied.OrganizerID = existing.OrganizerID
	r.events[event.ULID] = &copied
	return nil
}

func (r *fakeEventRepo) SetApproved(_ context.Context, ulid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[ulid]
	if !ok {
		return events.ErrNotFound
	}
	event.Approved = true
	return nil
}

func (r *fakeEventRepo) DeleteCascade(_ context.Context, ulid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[ulid]; !ok {
		return events.ErrNotFound
	}
	delete(r.events, ulid)
	return nil
}

type fakeRsvpRepo struct {
	mu      sync.Mutex
	records map[string]*rsvps.RSVP
	nextID  int
}

func newFakeRsvpRepo() *fakeRsvpRepo {
	return &fakeRsvpRepo{records: make(map[string]*rsvps.RSVP)}
}

func (r *fakeRsvpRepo) Create(_ context.Context, userID, eventID string) (*rsvps.RSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userID + "/" + eventID
	if _, ok := r.records[key]; ok {
		return nil, rsvps.ErrAlreadyRSVPed
	}
	r.nextID++
	record := &rsvps.RSVP{
		ID:        fmt.Sprintf("rsvp-%d", r.nextID),
		UserID:    userID,
		UserEmail: userID + "@example.com",
		CreatedAt: time.Now().UTC(),
	}
	r.records[key] = record
	copied := *record
	return &copied, nil
}

func (r *fakeRsvpRepo) ListByEvent(_ context.Context, eventID string) ([]rsvps.RSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []rsvps.RSVP
	for key, record := range r.records {
		if strings.HasSuffix(key, "/"+eventID) {
			result = append(result, *record)
		}
	}
	return result, nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*users.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*users.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return users.ErrEmailTaken
	}
	copied := *user
	r.byEmail[user.Email] = &copied
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byEmail[email]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

type testEnv struct {
	eventRepo *fakeEventRepo
	rsvpRepo  *fakeRsvpRepo
	userRepo  *fakeUserRepo
	events    *events.Service
	rsvps     *rsvps.Service
	users     *users.Service
	tokens    *auth.JWTManager
}

func newTestEnv() *testEnv {
	logger := zerolog.Nop()
	eventRepo := newFakeEventRepo()
	rsvpRepo := newFakeRsvpRepo()
	userRepo := newFakeUserRepo()
	tokens := auth.NewJWTManager("test-secret", time.Hour, "test")

	// Broadcasts are irrelevant to handler behavior; a hub with no
	// subscribers drops them.
	hub := realtime.NewHub(logger)

	return &testEnv{
		eventRepo: eventRepo,
		rsvpRepo:  rsvpRepo,
		userRepo:  userRepo,
		events:    events.NewService(eventRepo, hub, logger),
		rsvps:     rsvps.NewService(rsvpRepo, eventRepo, hub, logger),
		users:     users.NewService(userRepo, tokens, nil, logger),
		tokens:    tokens,
	}
}
