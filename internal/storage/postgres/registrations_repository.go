package postgres

import (
	"context"

	"github.com/Togather-Foundation/rsvp/internal/domain/registrations"
)

var (
	insertRegistration = Statement{
		Name: "insert_registration",
		SQL: `
INSERT INTO attendee_registrations (event_id, attendee_id, payment_status)
VALUES (@event_id, @attendee_id, @payment_status)
RETURNING registration_id`,
	}

	listRegistrationsByAttendee = Statement{
		Name: "list_registrations_by_attendee",
		SQL: `
SELECT r.registration_id, r.event_id, r.payment_status, r.registration_date,
       e.event_name, e.event_date, e.location
  FROM attendee_registrations r
  JOIN events e ON e.event_id = r.event_id
 WHERE r.attendee_id = @attendee_id
 ORDER BY e.event_date DESC, r.registration_id ASC`,
	}

	listRegistrationsByEvent = Statement{
		Name: "list_registrations_by_event",
		SQL: `
SELECT r.registration_id, r.attendee_id, u.username AS attendee_name,
       r.payment_status, r.registration_date
  FROM attendee_registrations r
  JOIN users u ON u.user_id = r.attendee_id
 WHERE r.event_id = @event_id
 ORDER BY r.registration_id ASC`,
	}

	deleteOwnedRegistration = Statement{
		Name: "delete_owned_registration",
		SQL:  `DELETE FROM attendee_registrations WHERE registration_id = @registration_id AND attendee_id = @attendee_id`,
	}
)

type RegistrationRepository struct {
	exec *Executor
}

var _ registrations.Repository = (*RegistrationRepository)(nil)

func (r *RegistrationRepository) Create(ctx context.Context, params registrations.CreateParams) (int64, error) {
	result, err := r.exec.Execute(ctx, insertRegistration, Params{
		"event_id":       Int(params.EventID),
		"attendee_id":    Int(params.AttendeeID),
		"payment_status": Text(params.PaymentStatus),
	})
	if err != nil {
		return 0, err
	}
	return returnedID(result, "registration_id")
}

func (r *RegistrationRepository) ListByAttendee(ctx context.Context, attendeeID int64) ([]registrations.AttendeeRegistration, error) {
	result, err := r.exec.Execute(ctx, listRegistrationsByAttendee, Params{"attendee_id": Int(attendeeID)})
	if err != nil {
		return nil, err
	}

	out := make([]registrations.AttendeeRegistration, 0, len(result.Rows))
	for _, row := range result.Rows {
		var reg registrations.AttendeeRegistration
		if reg.RegistrationID, err = row.Int64("registration_id"); err != nil {
			return nil, err
		}
		if reg.EventID, err = row.Int64("event_id"); err != nil {
			return nil, err
		}
		if reg.PaymentStatus, err = row.String("payment_status"); err != nil {
			return nil, err
		}
		if reg.RegistrationDate, err = row.Time("registration_date"); err != nil {
			return nil, err
		}
		if reg.EventName, err = row.String("event_name"); err != nil {
			return nil, err
		}
		if reg.EventDate, err = row.Time("event_date"); err != nil {
			return nil, err
		}
		if reg.Location, err = row.String("location"); err != nil {
			return nil, err
		}
		reg.RegistrationDate = reg.RegistrationDate.UTC()
		reg.EventDate = reg.EventDate.UTC()
		out = append(out, reg)
	}
	return out, nil
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int64) ([]registrations.EventAttendee, error) {
	result, err := r.exec.Execute(ctx, listRegistrationsByEvent, Params{"event_id": Int(eventID)})
	if err != nil {
		return nil, err
	}

	out := make([]registrations.EventAttendee, 0, len(result.Rows))
	for _, row := range result.Rows {
		var attendee registrations.EventAttendee
		if attendee.RegistrationID, err = row.Int64("registration_id"); err != nil {
			return nil, err
		}
		if attendee.AttendeeID, err = row.Int64("attendee_id"); err != nil {
			return nil, err
		}
		if attendee.AttendeeName, err = row.String("attendee_name"); err != nil {
			return nil, err
		}
		if attendee.PaymentStatus, err = row.String("payment_status"); err != nil {
			return nil, err
		}
		if attendee.RegistrationDate, err = row.Time("registration_date"); err != nil {
			return nil, err
		}
		attendee.RegistrationDate = attendee.RegistrationDate.UTC()
		out = append(out, attendee)
	}
	return out, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, id, attendeeID int64) (int64, error) {
	result, err := r.exec.Execute(ctx, deleteOwnedRegistration, Params{
		"registration_id": Int(id),
		"attendee_id":     Int(attendeeID),
	})
	if err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}
