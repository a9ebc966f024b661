package http

import (
	"log/slog"
	"net/http"

	"github.com/eventsphere/eventsphere/internal/service"
	"github.com/gorilla/mux"
)

// Handler serves the EventSphere command surface over HTTP.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewHandler creates a handler over svc.
func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger.With("component", "http")}
}

// Router returns the routed handler wrapped in the default middleware.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/stats", h.stats).Methods(http.MethodGet)

	v1.HandleFunc("/users", h.registerUser).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id:[0-9]+}", h.getUser).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id:[0-9]+}", h.updateUser).Methods(http.MethodPut)
	v1.HandleFunc("/users/{id:[0-9]+}", h.deleteUser).Methods(http.MethodDelete)

	v1.HandleFunc("/events", h.addEvent).Methods(http.MethodPost)
	v1.HandleFunc("/events", h.getEvents).Methods(http.MethodGet)
	v1.HandleFunc("/events/upcoming", h.getUpcomingEvents).Methods(http.MethodGet)
	v1.HandleFunc("/events/past", h.getPastEvents).Methods(http.MethodGet)
	v1.HandleFunc("/events/by-name/{name}", h.getEventByName).Methods(http.MethodGet)
	v1.HandleFunc("/events/{id:[0-9]+}", h.getEvent).Methods(http.MethodGet)
	v1.HandleFunc("/events/{id:[0-9]+}", h.updateEvent).Methods(http.MethodPut)
	v1.HandleFunc("/events/{id:[0-9]+}", h.deleteEvent).Methods(http.MethodDelete)
	v1.HandleFunc("/events/{id:[0-9]+}/attendees", h.addAttendee).Methods(http.MethodPost)
	v1.HandleFunc("/events/{id:[0-9]+}/attendees", h.getAttendees).Methods(http.MethodGet)
	v1.HandleFunc("/events/{id:[0-9]+}/tickets", h.generateTickets).Methods(http.MethodPost)
	v1.HandleFunc("/events/{id:[0-9]+}/tickets", h.getTickets).Methods(http.MethodGet)
	v1.HandleFunc("/events/{id:[0-9]+}/tickets/available", h.getAvailableTicketsCount).Methods(http.MethodGet)
	v1.HandleFunc("/events/{id:[0-9]+}/purchases", h.purchaseTicket).Methods(http.MethodPost)

	v1.HandleFunc("/tickets/{id:[0-9]+}", h.deleteTicket).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "route not found", RequestID: GetRequestID(r.Context())})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", RequestID: GetRequestID(r.Context())})
	})

	return DefaultMiddleware(h.logger)(r)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"operations": h.svc.Stats().Snapshot()})
}
