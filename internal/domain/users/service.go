package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatherhall/server/internal/auth"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mailer dispatches account emails. Failures never propagate to the
// signup response; they are logged by the caller's detached goroutine.
type Mailer interface {
	SendWelcome(to string) error
}

type Service struct {
	repo   Repository
	tokens *auth.JWTManager
	mailer Mailer
	logger zerolog.Logger
}

func NewService(repo Repository, tokens *auth.JWTManager, mailer Mailer, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

type SignupParams struct {
	Email    string
	Password string
	Role     string
}

// Signup registers a new account. The requested role is honored only if
// it names a known role; everything else defaults to attendee. The
// welcome email is fire-and-forget: a slow or failing mail provider
// must not delay or fail the signup response.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || params.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	role := auth.RoleAttendee
	if auth.KnownRole(params.Role) {
		role = auth.NormalizeRole(params.Role)
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         string(role),
		CreatedAt:    time.Now().UTC(),
	}

	// Uniqueness rides on the store's unique index rather than a
	// separate existence read, so concurrent signups cannot both pass.
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.mailer != nil {
		go func(to string) {
			if err := s.mailer.SendWelcome(to); err != nil {
				s.logger.Warn().Err(err).Str("to", to).Msg("welcome email failed")
			}
		}(user.Email)
	}

	s.logger.Info().Str("user", user.ID).Str("role", user.Role).Msg("user registered")
	return user, nil
}

// Login verifies credentials and mints a signed token carrying the
// user's id and role. Unknown emails and wrong passwords return the
// same error.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, auth.NormalizeRole(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}
