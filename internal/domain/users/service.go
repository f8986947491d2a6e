// Package users registers accounts and authenticates them with a password.
package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Togather-Foundation/rsvp/internal/audit"
	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/metrics"
	"github.com/Togather-Foundation/rsvp/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Service struct {
	repo     Repository
	hasher   auth.PasswordHasher
	tokens   TokenIssuer
	audit    *audit.Logger
	logger   zerolog.Logger
	validate *validator.Validate
}

func NewService(repo Repository, hasher auth.PasswordHasher, tokens TokenIssuer, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		audit:    auditLogger,
		logger:   logger.With().Str("component", "users").Logger(),
		validate: validation.New(),
	}
}

// Register validates the input, hashes the password and stores the user.
// Nothing is written when validation fails.
func (s *Service) Register(ctx context.Context, in RegisterInput) (int64, error) {
	if err := s.validate.Struct(in); err != nil {
		return 0, validation.FromValidator(err)
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return 0, validation.Invalid("role", "must be Organizer or Attendee")
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.Create(ctx, CreateParams{
		Username:     in.Username,
		PasswordHash: digest,
		Role:         role,
	})
	metrics.RecordOperation("user", "register", err)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			s.audit.LogFailure("user.register", in.Username, 0, "user", "", map[string]string{"reason": "username_taken"})
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	s.audit.LogSuccess("user.register", in.Username, id, "user", strconv.FormatInt(id, 10), map[string]string{"role": role.String()})
	s.logger.Info().Int64("user_id", id).Str("role", role.String()).Msg("user registered")
	return id, nil
}

// Login returns ErrInvalidCredentials for both an unknown username and a wrong password.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return LoginResult{}, validation.FromValidator(err)
	}

	user, err := s.repo.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.RecordAuthFailure("invalid_credentials")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		metrics.RecordAuthFailure("invalid_credentials")
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return LoginResult{Token: token, UserID: user.ID, Role: user.Role}, nil
}
