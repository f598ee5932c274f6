package users

import (
	"errors"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

var (
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when signup targets an email that
	// already has an account.
	ErrEmailTaken = errors.New("email is already taken")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so login failures do not enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
