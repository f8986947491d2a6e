// Package registrations lets attendees sign up for events and cancel, and
// organizers list who signed up.
package registrations

import (
	"context"
	"fmt"
	"strconv"

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
}

func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		audit:    auditLogger,
		logger:   logger.With().Str("component", "registrations").Logger(),
		validate: validation.New(),
	}
}

// Register stores a registration for the caller. The event's existence and
// remaining capacity are not checked.
func (s *Service) Register(ctx context.Context, caller auth.Identity, in Input) (int64, error) {
	if err := auth.Require(caller, auth.RoleAttendee); err != nil {
		return 0, err
	}
	if err := s.validate.Struct(in); err != nil {
		return 0, validation.FromValidator(err)
	}

	status := DefaultPaymentStatus
	if in.PaymentStatus != nil {
		if cleaned := sanitize.Text(*in.PaymentStatus); cleaned != "" {
			status = cleaned
		}
	}

	id, err := s.repo.Create(ctx, CreateParams{
		EventID:       *in.EventID,
		AttendeeID:    caller.UserID,
		PaymentStatus: status,
	})
	metrics.RecordOperation("registration", "create", err)
	if err != nil {
		return 0, fmt.Errorf("create registration: %w", err)
	}

	s.audit.LogSuccess("registration.create", caller.Username, caller.UserID, "registration", strconv.FormatInt(id, 10),
		map[string]string{"event_id": strconv.FormatInt(*in.EventID, 10)})
	return id, nil
}

func (s *Service) ListMine(ctx context.Context, caller auth.Identity) ([]AttendeeRegistration, error) {
	if err := auth.Require(caller, auth.RoleAttendee); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByAttendee(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list registrations for attendee %d: %w", caller.UserID, err)
	}
	if list == nil {
		list = []AttendeeRegistration{}
	}
	return list, nil
}

// ListForEvent is open to any organizer, not only the event's owner.
func (s *Service) ListForEvent(ctx context.Context, caller auth.Identity, eventID int64) ([]EventAttendee, error) {
	if err := auth.Require(caller, auth.RoleOrganizer); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees for event %d: %w", eventID, err)
	}
	if list == nil {
		list = []EventAttendee{}
	}
	return list, nil
}

// Cancel deletes the caller's registration. It succeeds even when nothing
// matched, so cancelling a foreign or missing registration is a no-op.
func (s *Service) Cancel(ctx context.Context, caller auth.Identity, id int64) error {
	if err := auth.Require(caller, auth.RoleAttendee); err != nil {
		return err
	}

	removed, err := s.repo.Delete(ctx, id, caller.UserID)
	metrics.RecordOperation("registration", "cancel", err)
	if err != nil {
		return fmt.Errorf("cancel registration %d: %w", id, err)
	}

	if removed == 0 {
		s.logger.Debug().Int64("registration_id", id).Int64("attendee_id", caller.UserID).Msg("cancel matched no registration")
	}
	s.audit.LogSuccess("registration.cancel", caller.Username, caller.UserID, "registration", strconv.FormatInt(id, 10),
		map[string]string{"removed": strconv.FormatInt(removed, 10)})
	return nil
}
