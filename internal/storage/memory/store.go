// Package memory is an in-process store with the same semantics as the
// PostgreSQL repositories. It backs tests and `serve --in-memory`.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Togather-Foundation/rsvp/internal/domain/events"
	"github.com/Togather-Foundation/rsvp/internal/domain/registrations"
	"github.com/Togather-Foundation/rsvp/internal/domain/users"
)

var (
	_ users.Repository         = (*UserRepository)(nil)
	_ events.Repository        = (*EventRepository)(nil)
	_ registrations.Repository = (*RegistrationRepository)(nil)
)

type registrationRow struct {
	id            int64
	eventID       int64
	attendeeID    int64
	paymentStatus string
	registeredAt  time.Time
}

type Store struct {
	mu            sync.Mutex
	now           func() time.Time
	users         []users.User
	events        []events.Event
	registrations []registrationRow
	nextUser      int64
	nextEvent     int64
	nextReg       int64
}

func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Events() *EventRepository {
	return &EventRepository{store: s}
}

func (s *Store) Registrations() *RegistrationRepository {
	return &RegistrationRepository{store: s}
}

// Counts returns the number of users, events and registrations.
func (s *Store) Counts() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), len(s.events), len(s.registrations)
}

type UserRepository struct {
	store *Store
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == params.Username {
			return 0, users.ErrUsernameTaken
		}
	}
	s.nextUser++
	s.users = append(s.users, users.User{
		ID:           s.nextUser,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
	})
	return s.nextUser, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, users.ErrUserNotFound
}

type EventRepository struct {
	store *Store
}

func (r *EventRepository) List(ctx context.Context) ([]events.Event, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.WriteParams) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEvent++
	s.events = append(s.events, events.Event{
		ID:          s.nextEvent,
		Name:        params.Name,
		Date:        params.Date,
		Description: params.Description,
		Location:    params.Location,
		Capacity:    params.Capacity,
		OrganizerID: params.OrganizerID,
	})
	return s.nextEvent, nil
}

func (r *EventRepository) Update(ctx context.Context, id int64, params events.WriteParams) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		e := &s.events[i]
		if e.ID == id && e.OrganizerID == params.OrganizerID {
			e.Name = params.Name
			e.Date = params.Date
			e.Description = params.Description
			e.Location = params.Location
			e.Capacity = params.Capacity
			return 1, nil
		}
	}
	return 0, nil
}

func (r *EventRepository) DeleteCascade(ctx context.Context, id, organizerID int64) (events.DeleteResult, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result events.DeleteResult
	kept := s.registrations[:0]
	for _, reg := range s.registrations {
		if reg.eventID == id {
			result.RegistrationsRemoved++
			continue
		}
		kept = append(kept, reg)
	}
	s.registrations = kept

	for i, e := range s.events {
		if e.ID == id && e.OrganizerID == organizerID {
			s.events = append(s.events[:i], s.events[i+1:]...)
			result.EventsRemoved = 1
			break
		}
	}
	return result, nil
}

type RegistrationRepository struct {
	store *Store
}

func (r *RegistrationRepository) Create(ctx context.Context, params registrations.CreateParams) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextReg++
	s.registrations = append(s.registrations, registrationRow{
		id:            s.nextReg,
		eventID:       params.EventID,
		attendeeID:    params.AttendeeID,
		paymentStatus: params.PaymentStatus,
		registeredAt:  s.now().UTC(),
	})
	return s.nextReg, nil
}

func (r *RegistrationRepository) ListByAttendee(ctx context.Context, attendeeID int64) ([]registrations.AttendeeRegistration, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []registrations.AttendeeRegistration{}
	for _, reg := range s.registrations {
		if reg.attendeeID != attendeeID {
			continue
		}
		event, ok := s.eventByID(reg.eventID)
		if !ok {
			continue
		}
		out = append(out, registrations.AttendeeRegistration{
			RegistrationID:   reg.id,
			EventID:          reg.eventID,
			PaymentStatus:    reg.paymentStatus,
			RegistrationDate: reg.registeredAt,
			EventName:        event.Name,
			EventDate:        event.Date,
			Location:         event.Location,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EventDate.After(out[j].EventDate) })
	return out, nil
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int64) ([]registrations.EventAttendee, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []registrations.EventAttendee{}
	for _, reg := range s.registrations {
		if reg.eventID != eventID {
			continue
		}
		user, ok := s.userByID(reg.attendeeID)
		if !ok {
			continue
		}
		out = append(out, registrations.EventAttendee{
			RegistrationID:   reg.id,
			AttendeeID:       reg.attendeeID,
			AttendeeName:     user.Username,
			PaymentStatus:    reg.paymentStatus,
			RegistrationDate: reg.registeredAt,
		})
	}
	return out, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, id, attendeeID int64) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, reg := range s.registrations {
		if reg.id == id && reg.attendeeID == attendeeID {
			s.registrations = append(s.registrations[:i], s.registrations[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Store) eventByID(id int64) (events.Event, bool) {
	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return events.Event{}, false
}

func (s *Store) userByID(id int64) (users.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return users.User{}, false
}
