package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/eventsphere/eventsphere/internal/service"
	"github.com/eventsphere/eventsphere/pkg/types"
	"github.com/gorilla/mux"
)

// RegisterUserRequest is the body of POST /v1/users and PUT /v1/users/{id}.
type RegisterUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// EventRequest is the body of POST /v1/events and PUT /v1/events/{id}.
type EventRequest struct {
	EventName string `json:"event_name"`
	Details   string `json:"details"`
	Location  string `json:"location"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// AttendeeRequest is the body of POST /v1/events/{id}/attendees.
type AttendeeRequest struct {
	AttendeeName string `json:"attendee_name"`
}

// GenerateTicketsRequest is the body of POST /v1/events/{id}/tickets.
type GenerateTicketsRequest struct {
	TicketType  *types.TicketType `json:"ticket_type"`
	TicketPrice uint64            `json:"ticket_price"`
	NumTickets  uint32            `json:"num_tickets"`
}

// PurchaseRequest is the body of POST /v1/events/{id}/purchases.
type PurchaseRequest struct {
	TicketType   *types.TicketType `json:"ticket_type"`
	AttendeeName string            `json:"attendee_name"`
	NumTickets   uint32            `json:"num_tickets"`
}

// AvailableResponse is returned by the availability query.
type AvailableResponse struct {
	EventID    uint64           `json:"event_id"`
	TicketType types.TicketType `json:"ticket_type"`
	Available  uint64           `json:"available"`
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCategoryValidation, apperrors.CodeMalformedBody,
			"invalid request body", err)
	}
	return nil
}

func requireTicketType(tt *types.TicketType) (types.TicketType, error) {
	if tt == nil {
		return 0, apperrors.NewValidationError(apperrors.CodeEmptyField, "ticket_type must not be empty")
	}
	return *tt, nil
}

func pathID(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(apperrors.CodeInvalidID, fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

func (req RegisterUserRequest) input() (service.RegisterUserInput, error) {
	in := service.RegisterUserInput{Username: req.Username, Email: req.Email, Password: req.Password}
	if req.Role == "" {
		return in, apperrors.NewValidationError(apperrors.CodeEmptyField, "role must not be empty")
	}
	role, err := types.ParseRole(req.Role)
	if err != nil {
		return in, apperrors.Wrap(apperrors.ErrCategoryValidation, apperrors.CodeInvalidRole, "unknown role", err)
	}
	in.Role = role
	return in, nil
}

func (req EventRequest) input() service.EventInput {
	return service.EventInput{
		Name:      req.EventName,
		Details:   req.Details,
		Location:  req.Location,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.svc.RegisterUser(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req RegisterUserRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.svc.UpdateUser(r.Context(), id, in, credentials(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.svc.DeleteUser(r.Context(), id, credentials(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) addEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	event, err := h.svc.AddEvent(r.Context(), req.input(), credentials(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req EventRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	event, err := h.svc.UpdateEvent(r.Context(), id, req.input(), credentials(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	event, err := h.svc.DeleteEvent(r.Context(), id, credentials(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) getEventByName(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEventByName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) getEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.GetEvents(r.Context())
	h.writeEvents(w, r, events, err)
}

func (h *Handler) getUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.GetUpcomingEvents(r.Context())
	h.writeEvents(w, r, events, err)
}

func (h *Handler) getPastEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.GetPastEvents(r.Context())
	h.writeEvents(w, r, events, err)
}

func (h *Handler) writeEvents(w http.ResponseWriter, r *http.Request, events []types.Event, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) addAttendee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req AttendeeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.svc.AddAttendee(r.Context(), id, req.AttendeeName, credentials(r)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getAttendees(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	attendees, err := h.svc.GetAttendees(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attendees)
}

func (h *Handler) generateTickets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req GenerateTicketsRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	tt, err := requireTicketType(req.TicketType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	tickets, err := h.svc.GenerateTickets(r.Context(), service.GenerateTicketsInput{
		EventID: id,
		Type:    tt,
		Price:   req.TicketPrice,
		Count:   req.NumTickets,
	}, credentials(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tickets)
}

func (h *Handler) getTickets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	tickets, err := h.svc.GetTickets(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) getAvailableTicketsCount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	tt, err := types.ParseTicketType(r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, r, apperrors.Wrap(apperrors.ErrCategoryValidation, apperrors.CodeInvalidTicket, "unknown ticket type", err))
		return
	}
	n, err := h.svc.GetAvailableTicketsCount(r.Context(), id, tt)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailableResponse{EventID: id, TicketType: tt, Available: n})
}

func (h *Handler) purchaseTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req PurchaseRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	tt, err := requireTicketType(req.TicketType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.svc.PurchaseTicket(r.Context(), service.PurchaseInput{
		EventID:      id,
		Type:         tt,
		AttendeeName: req.AttendeeName,
		Count:        req.NumTickets,
	}, credentials(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) deleteTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ticket, err := h.svc.DeleteTicket(r.Context(), id, credentials(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}
