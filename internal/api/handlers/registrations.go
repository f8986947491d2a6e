package handlers

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/domain/registrations"
)

type RegistrationService interface {
	Register(ctx context.Context, caller auth.Identity, in registrations.Input) (int64, error)
	ListMine(ctx context.Context, caller auth.Identity) ([]registrations.AttendeeRegistration, error)
	ListForEvent(ctx context.Context, caller auth.Identity, eventID int64) ([]registrations.EventAttendee, error)
	Cancel(ctx context.Context, caller auth.Identity, id int64) error
}

type RegistrationsHandler struct {
	Service RegistrationService
	Env     string
}

func NewRegistrationsHandler(service RegistrationService, env string) *RegistrationsHandler {
	return &RegistrationsHandler{Service: service, Env: env}
}

type createRegistrationResponse struct {
	Message        string `json:"message"`
	RegistrationID int64  `json:"registrationId"`
}

func (h *RegistrationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	var input registrations.Input
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	id, err := h.Service.Register(r.Context(), identity, input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, createRegistrationResponse{Message: "Registered successfully", RegistrationID: id})
}

func (h *RegistrationsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	list, err := h.Service.ListMine(r.Context(), identity)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListForEvent serves any organizer, whoever owns the event.
func (h *RegistrationsHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	list, err := h.Service.ListForEvent(r.Context(), identity, eventID)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *RegistrationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	if err := h.Service.Cancel(r.Context(), identity, id); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Registration cancelled successfully"})
}
