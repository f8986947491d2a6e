package handlers

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/domain/events"
)

type EventService interface {
	List(ctx context.Context) ([]events.Event, error)
	Create(ctx context.Context, caller auth.Identity, in events.Input) (int64, error)
	Update(ctx context.Context, caller auth.Identity, id int64, in events.Input) error
	Delete(ctx context.Context, caller auth.Identity, id int64) error
}

type EventsHandler struct {
	Service EventService
	Env     string
}

func NewEventsHandler(service EventService, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type createEventResponse struct {
	Message string `json:"message"`
	EventID int64  `json:"eventId"`
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	var input events.Input
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	id, err := h.Service.Create(r.Context(), identity, input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, createEventResponse{Message: "Event created successfully", EventID: id})
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var input events.Input
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	if err := h.Service.Update(r.Context(), identity, id, input); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Event updated successfully"})
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.Delete(r.Context(), identity, id); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Event deleted successfully"})
}
