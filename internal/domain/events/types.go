package events

import (
	"context"
	"errors"
	"time"
)

// ErrNotOwned covers both a missing event and one owned by another organizer.
var ErrNotOwned = errors.New("event not found or not owned by caller")

type Event struct {
	ID          int64     `json:"eventId"`
	Name        string    `json:"eventName"`
	Date        time.Time `json:"eventDate"`
	Description *string   `json:"description"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity"`
	OrganizerID int64     `json:"organizerId"`
}

// WriteParams are the stored columns of a create or update.
type WriteParams struct {
	Name        string
	Date        time.Time
	Description *string
	Location    string
	Capacity    int
	OrganizerID int64
}

type DeleteResult struct {
	RegistrationsRemoved int64
	EventsRemoved        int64
}

// Repository persists events. Update and DeleteCascade filter on both the
// event id and the organizer id and report how many rows matched.
// DeleteCascade removes every registration of the event before the event row,
// whether or not the event row matches, in one transaction.
type Repository interface {
	List(ctx context.Context) ([]Event, error)
	Create(ctx context.Context, params WriteParams) (int64, error)
	Update(ctx context.Context, id int64, params WriteParams) (int64, error)
	DeleteCascade(ctx context.Context, id, organizerID int64) (DeleteResult, error)
}

type Input struct {
	EventName   string  `json:"eventName" validate:"required"`
	EventDate   string  `json:"eventDate" validate:"required"`
	Description *string `json:"description"`
	Location    string  `json:"location" validate:"required"`
	Capacity    *int    `json:"capacity" validate:"required,gt=0,lte=2147483647"`
}
