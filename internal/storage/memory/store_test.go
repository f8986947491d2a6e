package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/domain/events"
	"github.com/Togather-Foundation/rsvp/internal/domain/registrations"
	"github.com/Togather-Foundation/rsvp/internal/domain/users"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) (alice, carol, bob int64) {
	t.Helper()
	ctx := context.Background()
	var err error
	alice, err = s.Users().Create(ctx, users.CreateParams{Username: "alice", PasswordHash: "h", Role: auth.RoleOrganizer})
	require.NoError(t, err)
	carol, err = s.Users().Create(ctx, users.CreateParams{Username: "carol", PasswordHash: "h", Role: auth.RoleOrganizer})
	require.NoError(t, err)
	bob, err = s.Users().Create(ctx, users.CreateParams{Username: "bob", PasswordHash: "h", Role: auth.RoleAttendee})
	require.NoError(t, err)
	return alice, carol, bob
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice, _, _ := seed(t, s)
	require.Equal(t, int64(1), alice)

	_, err := s.Users().Create(ctx, users.CreateParams{Username: "alice", PasswordHash: "x", Role: auth.RoleAttendee})
	require.ErrorIs(t, err, users.ErrUsernameTaken)

	u, err := s.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, auth.RoleOrganizer, u.Role)

	_, err = s.Users().GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestEventsOwnershipAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice, carol, _ := seed(t, s)

	later, err := s.Events().Create(ctx, events.WriteParams{Name: "Later", Date: base.Add(time.Hour), OrganizerID: alice})
	require.NoError(t, err)
	earlier, err := s.Events().Create(ctx, events.WriteParams{Name: "Earlier", Date: base, OrganizerID: carol})
	require.NoError(t, err)

	list, err := s.Events().List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{earlier, later}, []int64{list[0].ID, list[1].ID})

	n, err := s.Events().Update(ctx, later, events.WriteParams{Name: "Hijack", Date: base, OrganizerID: carol})
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.Events().Update(ctx, later, events.WriteParams{Name: "Renamed", Date: base, OrganizerID: alice})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestDeleteCascadeRemovesRegistrationsForNonOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice, carol, bob := seed(t, s)

	id, err := s.Events().Create(ctx, events.WriteParams{Name: "Launch", Date: base, OrganizerID: alice})
	require.NoError(t, err)
	_, err = s.Registrations().Create(ctx, registrations.CreateParams{EventID: id, AttendeeID: bob, PaymentStatus: "Pending"})
	require.NoError(t, err)

	res, err := s.Events().DeleteCascade(ctx, id, carol)
	require.NoError(t, err)
	require.Equal(t, events.DeleteResult{RegistrationsRemoved: 1, EventsRemoved: 0}, res)

	_, evs, regs := s.Counts()
	require.Equal(t, 1, evs)
	require.Zero(t, regs)

	res, err = s.Events().DeleteCascade(ctx, id, alice)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.EventsRemoved)

	res, err = s.Events().DeleteCascade(ctx, id, alice)
	require.NoError(t, err)
	require.Zero(t, res.EventsRemoved)
}

func TestRegistrationsJoins(t *testing.T) {
	s := New()
	s.now = func() time.Time { return base }
	ctx := context.Background()
	alice, _, bob := seed(t, s)

	first, err := s.Events().Create(ctx, events.WriteParams{Name: "First", Date: base, Location: "A", OrganizerID: alice})
	require.NoError(t, err)
	second, err := s.Events().Create(ctx, events.WriteParams{Name: "Second", Date: base.AddDate(0, 1, 0), Location: "B", OrganizerID: alice})
	require.NoError(t, err)

	for _, id := range []int64{first, second, 999} {
		_, err := s.Registrations().Create(ctx, registrations.CreateParams{EventID: id, AttendeeID: bob, PaymentStatus: "Pending"})
		require.NoError(t, err)
	}

	mine, err := s.Registrations().ListByAttendee(ctx, bob)
	require.NoError(t, err)
	require.Len(t, mine, 2, "registrations for missing events are not joined")
	require.Equal(t, "Second", mine[0].EventName)
	require.Equal(t, base, mine[0].RegistrationDate)

	attendees, err := s.Registrations().ListByEvent(ctx, first)
	require.NoError(t, err)
	require.Len(t, attendees, 1)
	require.Equal(t, "bob", attendees[0].AttendeeName)

	none, err := s.Registrations().ListByEvent(ctx, 12345)
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)

	n, err := s.Registrations().Delete(ctx, mine[0].RegistrationID, alice)
	require.NoError(t, err)
	require.Zero(t, n)
	n, err = s.Registrations().Delete(ctx, mine[0].RegistrationID, bob)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Registrations().Create(ctx, registrations.CreateParams{EventID: 1, AttendeeID: 1, PaymentStatus: "Pending"})
			if err == nil {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}
