// Package events implements event listing and the organizer-owned mutations.
package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Togather-Foundation/rsvp/internal/audit"
	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/metrics"
	"github.com/Togather-Foundation/rsvp/internal/sanitize"
	"github.com/Togather-Foundation/rsvp/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Service struct {
	repo     Repository
	audit    *audit.Logger
	logger   zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		audit:    auditLogger,
		logger:   logger.With().Str("component", "events").Logger(),
		validate: validation.New(),
		now:      time.Now,
	}
}

// List returns all events ordered by date, earliest first.
func (s *Service) List(ctx context.Context) ([]Event, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if list == nil {
		list = []Event{}
	}
	return list, nil
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, in Input) (int64, error) {
	if err := auth.Require(caller, auth.RoleOrganizer); err != nil {
		return 0, err
	}
	params, err := s.params(caller, in)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.Create(ctx, params)
	metrics.RecordOperation("event", "create", err)
	if err != nil {
		return 0, fmt.Errorf("create event: %w", err)
	}

	s.audit.LogSuccess("event.create", caller.Username, caller.UserID, "event", strconv.FormatInt(id, 10), nil)
	return id, nil
}

// Update returns ErrNotOwned when no event matches both id and caller.
func (s *Service) Update(ctx context.Context, caller auth.Identity, id int64, in Input) error {
	if err := auth.Require(caller, auth.RoleOrganizer); err != nil {
		return err
	}
	params, err := s.params(caller, in)
	if err != nil {
		return err
	}

	affected, err := s.repo.Update(ctx, id, params)
	if err != nil {
		metrics.RecordOperation("event", "update", err)
		return fmt.Errorf("update event %d: %w", id, err)
	}
	if affected == 0 {
		metrics.RecordOperation("event", "update", ErrNotOwned)
		s.audit.LogFailure("event.update", caller.Username, caller.UserID, "event", strconv.FormatInt(id, 10), map[string]string{"reason": "not_owned"})
		return ErrNotOwned
	}

	metrics.RecordOperation("event", "update", nil)
	s.audit.LogSuccess("event.update", caller.Username, caller.UserID, "event", strconv.FormatInt(id, 10), nil)
	return nil
}

// Delete removes the event's registrations and then the event itself.
// Registrations are removed even when the event is not owned by the caller.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if err := auth.Require(caller, auth.RoleOrganizer); err != nil {
		return err
	}

	result, err := s.repo.DeleteCascade(ctx, id, caller.UserID)
	if err != nil {
		metrics.RecordOperation("event", "delete", err)
		return fmt.Errorf("delete event %d: %w", id, err)
	}

	details := map[string]string{"registrations_removed": strconv.FormatInt(result.RegistrationsRemoved, 10)}
	if result.EventsRemoved == 0 {
		metrics.RecordOperation("event", "delete", ErrNotOwned)
		details["reason"] = "not_owned"
		s.audit.LogFailure("event.delete", caller.Username, caller.UserID, "event", strconv.FormatInt(id, 10), details)
		return ErrNotOwned
	}

	metrics.RecordOperation("event", "delete", nil)
	s.audit.LogSuccess("event.delete", caller.Username, caller.UserID, "event", strconv.FormatInt(id, 10), details)
	return nil
}

func (s *Service) params(caller auth.Identity, in Input) (WriteParams, error) {
	if err := s.validate.Struct(in); err != nil {
		return WriteParams{}, validation.FromValidator(err)
	}

	name := sanitize.Text(in.EventName)
	if name == "" {
		return WriteParams{}, validation.Invalid("eventName", "is required")
	}
	location := sanitize.Text(in.Location)
	if location == "" {
		return WriteParams{}, validation.Invalid("location", "is required")
	}

	date, err := ParseEventDate(in.EventDate, s.now())
	if err != nil {
		return WriteParams{}, validation.Invalid("eventDate", "is not a recognizable date")
	}

	return WriteParams{
		Name:        name,
		Date:        date,
		Description: sanitize.OptionalText(in.Description),
		Location:    location,
		Capacity:    *in.Capacity,
		OrganizerID: caller.UserID,
	}, nil
}
