package postgres

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/rsvp/internal/domain/events"
)

var (
	listEvents = Statement{
		Name: "list_events",
		SQL: `
SELECT event_id, event_name, event_date, description, location, capacity, organizer_id
  FROM events
 ORDER BY event_date ASC, event_id ASC`,
	}

	insertEvent = Statement{
		Name: "insert_event",
		SQL: `
INSERT INTO events (event_name, event_date, description, location, capacity, organizer_id)
VALUES (@event_name, @event_date, @description, @location, @capacity, @organizer_id)
RETURNING event_id`,
	}

	updateEvent = Statement{
		Name: "update_event",
		SQL: `
UPDATE events
   SET event_name = @event_name,
       event_date = @event_date,
       description = @description,
       location = @location,
       capacity = @capacity
 WHERE event_id = @event_id
   AND organizer_id = @organizer_id`,
	}

	deleteEventRegistrations = Statement{
		Name: "delete_event_registrations",
		SQL:  `DELETE FROM attendee_registrations WHERE event_id = @event_id`,
	}

	deleteOwnedEvent = Statement{
		Name: "delete_owned_event",
		SQL:  `DELETE FROM events WHERE event_id = @event_id AND organizer_id = @organizer_id`,
	}
)

type EventRepository struct {
	exec *Executor
}

var _ events.Repository = (*EventRepository)(nil)

func (r *EventRepository) List(ctx context.Context) ([]events.Event, error) {
	result, err := r.exec.Execute(ctx, listEvents, nil)
	if err != nil {
		return nil, err
	}

	out := make([]events.Event, 0, len(result.Rows))
	for _, row := range result.Rows {
		event, err := scanEvent(row)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.WriteParams) (int64, error) {
	result, err := r.exec.Execute(ctx, insertEvent, eventParams(params))
	if err != nil {
		return 0, err
	}
	return returnedID(result, "event_id")
}

func (r *EventRepository) Update(ctx context.Context, id int64, params events.WriteParams) (int64, error) {
	args := eventParams(params)
	args["event_id"] = Int(id)

	result, err := r.exec.Execute(ctx, updateEvent, args)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}

// DeleteCascade commits the registration delete even when the owned-event
// delete matches nothing; only a statement failure rolls back.
func (r *EventRepository) DeleteCascade(ctx context.Context, id, organizerID int64) (events.DeleteResult, error) {
	var out events.DeleteResult
	err := r.exec.InTx(ctx, func(ctx context.Context, tx *Executor) error {
		regs, err := tx.Execute(ctx, deleteEventRegistrations, Params{"event_id": Int(id)})
		if err != nil {
			return err
		}
		evs, err := tx.Execute(ctx, deleteOwnedEvent, Params{
			"event_id":     Int(id),
			"organizer_id": Int(organizerID),
		})
		if err != nil {
			return err
		}
		out = events.DeleteResult{
			RegistrationsRemoved: regs.RowsAffected,
			EventsRemoved:        evs.RowsAffected,
		}
		return nil
	})
	if err != nil {
		return events.DeleteResult{}, err
	}
	return out, nil
}

func eventParams(params events.WriteParams) Params {
	return Params{
		"event_name":   Text(params.Name),
		"event_date":   DateTime(params.Date),
		"description":  NullText(params.Description),
		"location":     Text(params.Location),
		"capacity":     Int(int64(params.Capacity)),
		"organizer_id": Int(params.OrganizerID),
	}
}

func scanEvent(row Row) (events.Event, error) {
	var (
		event    events.Event
		capacity int64
		err      error
	)
	if event.ID, err = row.Int64("event_id"); err != nil {
		return events.Event{}, err
	}
	if event.Name, err = row.String("event_name"); err != nil {
		return events.Event{}, err
	}
	if event.Date, err = row.Time("event_date"); err != nil {
		return events.Event{}, err
	}
	if event.Description, err = row.NullString("description"); err != nil {
		return events.Event{}, err
	}
	if event.Location, err = row.String("location"); err != nil {
		return events.Event{}, err
	}
	if capacity, err = row.Int64("capacity"); err != nil {
		return events.Event{}, err
	}
	if event.OrganizerID, err = row.Int64("organizer_id"); err != nil {
		return events.Event{}, fmt.Errorf("event %d: %w", event.ID, err)
	}
	event.Capacity = int(capacity)
	event.Date = event.Date.UTC()
	return event, nil
}
