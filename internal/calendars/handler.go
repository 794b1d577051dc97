// Package calendars exposes the calendar discovery and creation endpoints.
package calendars

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agendero/agendero/internal/gcal"
	httpmiddleware "github.com/agendero/agendero/internal/http/middleware"
	"github.com/agendero/agendero/pkg/logging"
)

type directory interface {
	ListCalendars(ctx context.Context) ([]gcal.CalendarInfo, error)
	CreateCalendar(ctx context.Context, summary, timeZone string) (string, error)
}

// Handler serves calendar listing and creation.
type Handler struct {
	gateway         directory
	defaultTimezone string
	logger          *logging.Logger
}

// NewHandler creates a calendars handler. New calendars default to the
// given timezone when the request omits one.
func NewHandler(gateway directory, defaultTimezone string, logger *logging.Logger) *Handler {
	if gateway == nil {
		panic("calendars: gateway cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{gateway: gateway, defaultTimezone: defaultTimezone, logger: logger}
}

// HandleList handles GET /calendars/list.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	infos, err := h.gateway.ListCalendars(r.Context())
	if err != nil {
		h.logger.Error("calendar list failed", "error", err)
		http.Error(w, `{"error": "calendars_failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		h.logger.Error("failed to encode calendar list", "error", err)
	}
}

type createRequest struct {
	Summary  string `json:"summary"`
	TimeZone string `json:"timeZone"`
}

type createResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// HandleCreate handles POST /calendars/create.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid_json"}`, http.StatusBadRequest)
		return
	}
	if req.Summary == "" {
		http.Error(w, `{"error": "missing_fields"}`, http.StatusBadRequest)
		return
	}
	if req.TimeZone == "" {
		req.TimeZone = h.defaultTimezone
	}

	id, err := h.gateway.CreateCalendar(r.Context(), req.Summary, req.TimeZone)
	if err != nil {
		h.logger.Error("calendar create failed", "summary", req.Summary, "error", err)
		http.Error(w, `{"ok": false, "error": "calendar_create_failed"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("calendar created",
		"calendar_id", id,
		"summary", req.Summary,
		"created_by", httpmiddleware.AdminSubject(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(createResponse{OK: true, ID: id}); err != nil {
		h.logger.Error("failed to encode calendar create response", "error", err)
	}
}
