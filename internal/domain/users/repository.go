package users

import "context"

// Repository is the persistence boundary for accounts. Create must
// enforce email uniqueness atomically and return ErrEmailTaken on a
// duplicate, so two concurrent signups cannot both succeed.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
}
