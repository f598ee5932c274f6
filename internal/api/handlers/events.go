package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gatherhall/server/internal/api/middleware"
	"github.com/gatherhall/server/internal/api/problem"
	"github.com/gatherhall/server/internal/domain/events"
	"github.com/gatherhall/server/internal/domain/ids"
	"github.com/gatherhall/server/internal/domain/rsvps"
	"github.com/go-playground/validator/v10"
)

type EventsHandler struct {
	Events   *events.Service
	Rsvps    *rsvps.Service
	Env      string
	validate *validator.Validate
}

func NewEventsHandler(eventService *events.Service, rsvpService *rsvps.Service, env string) *EventsHandler {
	return &EventsHandler{
		Events:   eventService,
		Rsvps:    rsvpService,
		Env:      env,
		validate: validator.New(),
	}
}

type createEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location"`
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ClaimsFromContext(r.Context())

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.Env)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Title and date are required", err, h.Env)
		return
	}

	event, err := h.Events.Create(r.Context(), actor, events.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
	})
	if err != nil {
		h.writeEventError(w, r, err, "Could not create event")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ClaimsFromContext(r.Context())

	result, err := h.Events.List(r.Context(), actor)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Could not fetch events", err, h.Env)
		return
	}
	if result == nil {
		result = []events.Event{}
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, err := h.Events.Get(r.Context(), ulid)
	if err != nil {
		h.writeEventError(w, r, err, "Could not fetch event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ClaimsFromContext(r.Context())
	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.Env)
		return
	}

	event, err := h.Events.Update(r.Context(), actor, ulid, events.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
	})
	if err != nil {
		h.writeEventError(w, r, err, "Could not update event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ClaimsFromContext(r.Context())
	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if err := h.Events.Delete(r.Context(), actor, ulid); err != nil {
		h.writeEventError(w, r, err, "Could not delete event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type approveResponse struct {
	Message string        `json:"message"`
	Event   *events.Event `json:"event"`
}

func (h *EventsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ClaimsFromContext(r.Context())
	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, err := h.Events.Approve(r.Context(), actor, ulid)
	if err != nil {
		h.writeEventError(w, r, err, "Could not approve event")
		return
	}

	writeJSON(w, http.StatusOK, approveResponse{Message: "Event approved", Event: event})
}

type rsvpResponse struct {
	Message string      `json:"message"`
	RSVP    *rsvps.RSVP `json:"rsvp"`
}

func (h *EventsHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ClaimsFromContext(r.Context())
	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	record, err := h.Rsvps.Create(r.Context(), actor, ulid)
	if err != nil {
		switch {
		case errors.Is(err, rsvps.ErrEventNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found or not approved", err, h.Env)
		case errors.Is(err, rsvps.ErrAlreadyRSVPed):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "You have already RSVP'd to this event", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Could not process RSVP", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusCreated, rsvpResponse{Message: "RSVP successful", RSVP: record})
}

func (h *EventsHandler) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	value := strings.TrimSpace(pathParam(r, "id"))
	if value == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Missing event id", nil, h.Env)
		return "", false
	}
	if err := ids.ValidateULID(value); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid event id", err, h.Env)
		return "", false
	}
	return value, true
}

func (h *EventsHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error, title string) {
	switch {
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
	case errors.Is(err, events.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "You are not authorized to perform this action", err, h.Env)
	case errors.Is(err, events.ErrInvalidInput):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid event data", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, title, err, h.Env)
	}
}
