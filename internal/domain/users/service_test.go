package users

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gatherhall/server/internal/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return ErrEmailTaken
	}
	copied := *user
	r.byEmail[user.Email] = &copied
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

type recordingMailer struct {
	sent chan string
	fail bool
}

func (m *recordingMailer) SendWelcome(to string) error {
	m.sent <- to
	if m.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func newTestService(mailer Mailer) (*Service, *fakeUserRepo, *auth.JWTManager) {
	repo := newFakeUserRepo()
	tokens := auth.NewJWTManager("test-secret", time.Hour, "test")
	return NewService(repo, tokens, mailer, zerolog.Nop()), repo, tokens
}

func TestSignup(t *testing.T) {
	mailer := &recordingMailer{sent: make(chan string, 1)}
	service, _, _ := newTestService(mailer)

	user, err := service.Signup(context.Background(), SignupParams{Email: "A@X.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "a@x.com", user.Email, "emails are normalized")
	require.Equal(t, "ATTENDEE", user.Role, "role defaults to attendee")
	require.NotEqual(t, "pw", user.PasswordHash)

	select {
	case to := <-mailer.sent:
		require.Equal(t, "a@x.com", to)
	case <-time.After(time.Second):
		t.Fatal("expected welcome email dispatch")
	}
}

func TestSignupHonorsKnownRole(t *testing.T) {
	service, _, _ := newTestService(nil)

	organizer, err := service.Signup(context.Background(), SignupParams{Email: "o@x.com", Password: "pw", Role: "organizer"})
	require.NoError(t, err)
	require.Equal(t, "ORGANIZER", organizer.Role)

	unknown, err := service.Signup(context.Background(), SignupParams{Email: "u@x.com", Password: "pw", Role: "superuser"})
	require.NoError(t, err)
	require.Equal(t, "ATTENDEE", unknown.Role, "unknown roles fall back to attendee")
}

func TestSignupDuplicateEmail(t *testing.T) {
	service, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := service.Signup(ctx, SignupParams{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = service.Signup(ctx, SignupParams{Email: "A@X.COM", Password: "other"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignupMissingFields(t *testing.T) {
	service, _, _ := newTestService(nil)

	_, err := service.Signup(context.Background(), SignupParams{Email: "", Password: "pw"})
	require.Error(t, err)

	_, err = service.Signup(context.Background(), SignupParams{Email: "a@x.com", Password: ""})
	require.Error(t, err)
}

func TestSignupMailerFailureDoesNotFailSignup(t *testing.T) {
	mailer := &recordingMailer{sent: make(chan string, 1), fail: true}
	service, _, _ := newTestService(mailer)

	_, err := service.Signup(context.Background(), SignupParams{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err, "mail failures are logged, never surfaced")

	select {
	case <-mailer.sent:
	case <-time.After(time.Second):
		t.Fatal("expected welcome email attempt")
	}
}

func TestLogin(t *testing.T) {
	service, _, tokens := newTestService(nil)
	ctx := context.Background()

	created, err := service.Signup(ctx, SignupParams{Email: "a@x.com", Password: "pw", Role: "ADMIN"})
	require.NoError(t, err)

	token, user, err := service.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	require.Equal(t, created.ID, claims.UserID())
	require.Equal(t, "ADMIN", claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	service, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := service.Signup(ctx, SignupParams{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, _, err = service.Login(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	service, _, _ := newTestService(nil)

	_, _, err := service.Login(context.Background(), "ghost@x.com", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials, "unknown email must not be distinguishable")
}

func TestConcurrentSignupSameEmail(t *testing.T) {
	service, _, _ := newTestService(nil)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Signup(ctx, SignupParams{Email: "race@x.com", Password: "pw"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, ErrEmailTaken)
		}
	}
	require.Equal(t, 1, successes)
}
