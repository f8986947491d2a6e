package users

import (
	"context"
	"errors"

	"github.com/Togather-Foundation/rsvp/internal/auth"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is immutable after registration.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         auth.Role
}

type CreateParams struct {
	Username     string
	PasswordHash string
	Role         auth.Role
}

// Repository persists users. Create returns ErrUsernameTaken on a uniqueness
// collision and GetByUsername returns ErrUserNotFound when no row matches.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (int64, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// TokenIssuer signs identity tokens for logged-in users.
type TokenIssuer interface {
	Issue(identity auth.Identity) (string, error)
}

type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token  string
	UserID int64
	Role   auth.Role
}
