package registrations

import (
	"context"
	"time"
)

const DefaultPaymentStatus = "Pending"

type CreateParams struct {
	EventID       int64
	AttendeeID    int64
	PaymentStatus string
}

// AttendeeRegistration is a caller's registration joined with its event.
type AttendeeRegistration struct {
	RegistrationID   int64     `json:"registrationId"`
	EventID          int64     `json:"eventId"`
	PaymentStatus    string    `json:"paymentStatus"`
	RegistrationDate time.Time `json:"registrationDate"`
	EventName        string    `json:"eventName"`
	EventDate        time.Time `json:"eventDate"`
	Location         string    `json:"location"`
}

// EventAttendee is one registration of an event joined with the attendee's username.
type EventAttendee struct {
	RegistrationID   int64     `json:"registrationId"`
	AttendeeID       int64     `json:"attendeeId"`
	AttendeeName     string    `json:"attendeeName"`
	PaymentStatus    string    `json:"paymentStatus"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// Repository persists registrations. ListByAttendee orders by event date,
// latest first. Delete filters on both ids and reports rows removed.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (int64, error)
	ListByAttendee(ctx context.Context, attendeeID int64) ([]AttendeeRegistration, error)
	ListByEvent(ctx context.Context, eventID int64) ([]EventAttendee, error)
	Delete(ctx context.Context, id, attendeeID int64) (int64, error)
}

type Input struct {
	EventID       *int64  `json:"eventId" validate:"required,gt=0,lte=2147483647"`
	PaymentStatus *string `json:"paymentStatus"`
}
