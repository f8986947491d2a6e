package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/config"
	"github.com/Togather-Foundation/rsvp/internal/domain/events"
	"github.com/Togather-Foundation/rsvp/internal/domain/registrations"
	"github.com/Togather-Foundation/rsvp/internal/domain/users"
	"github.com/Togather-Foundation/rsvp/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMethodMux(t *testing.T) {
	mux := methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		http.MethodPost: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}),
	})

	tests := []struct {
		method       string
		expectStatus int
		expectAllow  string
	}{
		{http.MethodGet, http.StatusOK, ""},
		{http.MethodPost, http.StatusCreated, ""},
		{http.MethodPut, http.StatusMethodNotAllowed, "GET, POST"},
		{http.MethodDelete, http.StatusMethodNotAllowed, "GET, POST"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tt.method, "/test", nil))

			if w.Code != tt.expectStatus {
				t.Errorf("expected status %d, got %d", tt.expectStatus, w.Code)
			}
			if allow := w.Header().Get("Allow"); allow != tt.expectAllow {
				t.Errorf("expected Allow header %q, got %q", tt.expectAllow, allow)
			}
		})
	}
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	logger := zerolog.Nop()
	tokens := auth.NewTokenService("router-test-secret", time.Hour, "rsvp")

	handler := NewRouter(Deps{
		Config:        config.Config{Environment: "test"},
		Logger:        logger,
		Users:         users.NewService(store.Users(), auth.NewBcryptHasher(4), tokens, nil, logger),
		Events:        events.NewService(store.Events(), nil, logger),
		Registrations: registrations.NewService(store.Registrations(), nil, logger),
		Tokens:        tokens,
		Build:         BuildInfo{Version: "test"},
	})
	return &testServer{t: t, handler: handler, store: store}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) expect(rec *httptest.ResponseRecorder, status int, dst any) {
	s.t.Helper()
	require.Equal(s.t, status, rec.Code, "body: %s", rec.Body.String())
	if dst != nil {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), dst))
	}
}

func (s *testServer) signUp(username, role string) (int64, string) {
	s.t.Helper()
	var reg struct {
		UserID int64 `json:"userId"`
	}
	s.expect(s.do(http.MethodPost, "/api/auth/register", "",
		fmt.Sprintf(`{"username":%q,"password":"pw-%s","role":%q}`, username, username, role)), http.StatusCreated, &reg)

	var login struct {
		Token  string `json:"token"`
		Role   string `json:"role"`
		UserID int64  `json:"userId"`
	}
	s.expect(s.do(http.MethodPost, "/api/auth/login", "",
		fmt.Sprintf(`{"username":%q,"password":"pw-%s"}`, username, username)), http.StatusOK, &login)
	require.Equal(s.t, role, login.Role)
	require.Equal(s.t, reg.UserID, login.UserID)
	require.NotEmpty(s.t, login.Token)
	return reg.UserID, login.Token
}

const conference = `{"eventName":"Go Conf","eventDate":"2026-05-01T09:00:00Z","description":"Talks","location":"Hall A","capacity":100}`

func TestRouter_OrganizerAttendeeFlow(t *testing.T) {
	s := newTestServer(t)

	aliceID, alice := s.signUp("alice", "Organizer")
	bobID, bob := s.signUp("bob", "Attendee")
	_, carol := s.signUp("carol", "Organizer")
	require.NotEqual(t, aliceID, bobID)

	var created struct {
		Message string `json:"message"`
		EventID int64  `json:"eventId"`
	}
	s.expect(s.do(http.MethodPost, "/api/events", alice, conference), http.StatusCreated, &created)
	require.Equal(t, "Event created successfully", created.Message)

	var listed []map[string]any
	s.expect(s.do(http.MethodGet, "/api/events", "", ""), http.StatusOK, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, "Go Conf", listed[0]["eventName"])
	require.EqualValues(t, aliceID, listed[0]["organizerId"])

	var registered struct {
		RegistrationID int64 `json:"registrationId"`
	}
	s.expect(s.do(http.MethodPost, "/api/registrations", bob, fmt.Sprintf(`{"eventId":%d}`, created.EventID)), http.StatusCreated, &registered)

	var mine []map[string]any
	s.expect(s.do(http.MethodGet, "/api/registrations/my-registrations", bob, ""), http.StatusOK, &mine)
	require.Len(t, mine, 1)
	require.Equal(t, "Go Conf", mine[0]["eventName"])
	require.Equal(t, "Pending", mine[0]["paymentStatus"])

	// Any organizer may list attendees, not only the owner.
	for _, organizer := range []string{alice, carol} {
		var attendees []map[string]any
		s.expect(s.do(http.MethodGet, fmt.Sprintf("/api/registrations/event/%d", created.EventID), organizer, ""), http.StatusOK, &attendees)
		require.Len(t, attendees, 1)
		require.Equal(t, "bob", attendees[0]["attendeeName"])
		require.EqualValues(t, bobID, attendees[0]["attendeeId"])
	}

	eventPath := fmt.Sprintf("/api/events/%d", created.EventID)
	s.expect(s.do(http.MethodPut, eventPath, carol, conference), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodPut, eventPath, alice, strings.Replace(conference, "Go Conf", "Go Conf 2026", 1)), http.StatusOK, nil)
	s.expect(s.do(http.MethodGet, "/api/events", "", ""), http.StatusOK, &listed)
	require.Equal(t, "Go Conf 2026", listed[0]["eventName"])

	s.expect(s.do(http.MethodDelete, fmt.Sprintf("/api/registrations/%d", registered.RegistrationID), bob, ""), http.StatusOK, nil)
	s.expect(s.do(http.MethodGet, "/api/registrations/my-registrations", bob, ""), http.StatusOK, &mine)
	require.Empty(t, mine)

	s.expect(s.do(http.MethodDelete, eventPath, alice, ""), http.StatusOK, nil)
	s.expect(s.do(http.MethodDelete, eventPath, alice, ""), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodGet, "/api/events", "", ""), http.StatusOK, &listed)
	require.Empty(t, listed)
}

func TestRouter_AuthStatuses(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.signUp("alice", "Organizer")
	_, bob := s.signUp("bob", "Attendee")

	s.expect(s.do(http.MethodPost, "/api/events", "", conference), http.StatusUnauthorized, nil)
	s.expect(s.do(http.MethodPost, "/api/events", "garbage", conference), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodPost, "/api/events", bob, conference), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodPost, "/api/registrations", alice, `{"eventId":1}`), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodGet, "/api/registrations/my-registrations", alice, ""), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodGet, "/api/registrations/event/1", bob, ""), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodDelete, "/api/registrations/1", "", ""), http.StatusUnauthorized, nil)

	_, events, _ := s.store.Counts()
	require.Zero(t, events)
}

func TestRouter_RegistrationAndLoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.signUp("alice", "Organizer")

	s.expect(s.do(http.MethodPost, "/api/auth/register", "", `{"username":"alice","password":"other","role":"Attendee"}`), http.StatusConflict, nil)
	s.expect(s.do(http.MethodPost, "/api/auth/register", "", `{"username":"dan","password":"pw","role":"Admin"}`), http.StatusBadRequest, nil)
	s.expect(s.do(http.MethodPost, "/api/auth/register", "", `{"username":"dan","password":"pw"}`), http.StatusBadRequest, nil)

	usersCount, _, _ := s.store.Counts()
	require.Equal(t, 1, usersCount)

	unknown := s.do(http.MethodPost, "/api/auth/login", "", `{"username":"nobody","password":"pw"}`)
	wrong := s.do(http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"nope"}`)
	require.Equal(t, http.StatusBadRequest, unknown.Code)
	require.Equal(t, http.StatusBadRequest, wrong.Code)

	var a, b map[string]any
	require.NoError(t, json.Unmarshal(unknown.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(wrong.Body.Bytes(), &b))
	require.Equal(t, a["detail"], b["detail"])
}

func TestRouter_EventValidation(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.signUp("alice", "Organizer")

	bodies := []string{
		`{"eventDate":"2026-05-01","location":"Hall","capacity":10}`,
		`{"eventName":"X","eventDate":"2026-05-01","location":"Hall"}`,
		`{"eventName":"X","eventDate":"2026-05-01","location":"Hall","capacity":0}`,
		`{"eventName":"X","eventDate":"xyzzy","location":"Hall","capacity":10}`,
		`{"eventName":"X","eventDate":"2026-05-01","location":"Hall","capacity":"ten"}`,
	}
	for _, body := range bodies {
		s.expect(s.do(http.MethodPost, "/api/events", alice, body), http.StatusBadRequest, nil)
	}
	s.expect(s.do(http.MethodPut, "/api/events/abc", alice, conference), http.StatusBadRequest, nil)

	_, eventsCount, _ := s.store.Counts()
	require.Zero(t, eventsCount)
}

func TestRouter_FallbacksAndOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/nothing-here", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())

	rec = s.do(http.MethodPatch, "/api/events", "", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, POST", rec.Header().Get("Allow"))

	rec = s.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	s.expect(s.do(http.MethodGet, "/readyz", "", ""), http.StatusOK, nil)

	rec = s.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "rsvp_http_requests_total")
}
