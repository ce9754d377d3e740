// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the attendance engine.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riverhall/attendance/internal/model"
	"github.com/riverhall/attendance/internal/service"
)

// AttendanceHandler holds all HTTP handlers for the attendance API.
type AttendanceHandler struct {
	svc *service.Service
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(svc *service.Service) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps an engine error to an HTTP status. Handlers never
// branch on error strings; errors.Is against the engine's sentinels is the
// whole contract.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "event is at capacity")
	case errors.Is(err, service.ErrDuplicateAttendance):
		writeError(w, http.StatusConflict, "already registered for this event")
	case errors.Is(err, service.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRegistrationNotYetOpen),
		errors.Is(err, service.ErrRegistrationClosed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrPaymentFailed):
		writeError(w, http.StatusPaymentRequired, "payment failed; reservation released")
	case errors.Is(err, service.ErrNotEligible):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCodeGenerationExhausted):
		writeError(w, http.StatusServiceUnavailable, "could not allocate a confirmation code")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *AttendanceHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *AttendanceHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *AttendanceHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// GetCapacity handles GET /events/{id}/capacity
func (h *AttendanceHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetCapacity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ListAttendance handles GET /events/{id}/attendance
func (h *AttendanceHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListAttendance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ─── Attendance handlers ──────────────────────────────────────────────────────

// Register handles POST /events/{id}/register
func (h *AttendanceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	record, err := h.svc.RegisterForEvent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Cancel handles POST /attendance/{id}/cancel
func (h *AttendanceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.CancelAttendance(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CheckIn handles POST /attendance/{id}/checkin
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req model.CheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.CheckIn(r.Context(), chi.URLParam(r, "id"), req.CheckerUserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GrantVolunteerTicket handles POST /volunteer-assignments/{id}/ticket
func (h *AttendanceHandler) GrantVolunteerTicket(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.GrantVolunteerTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
