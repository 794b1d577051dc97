package booking

import (
	"encoding/json"
	"net/http"

	"github.com/agendero/agendero/pkg/logging"
)

// Handler serves the booking endpoint consumed by the WhatsApp bot.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a booking handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("booking: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type bookResponse struct {
	OK      bool   `json:"ok"`
	EventID string `json:"eventId"`
}

// HandleBook handles POST /book.
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid_json"}`, http.StatusBadRequest)
		return
	}

	if req.CalendarID == "" || req.Date == "" || req.Time == "" {
		http.Error(w, `{"error": "missing_fields"}`, http.StatusBadRequest)
		return
	}

	result, err := h.service.Book(r.Context(), req)
	if err != nil {
		h.logger.Error("booking failed",
			"calendar_id", req.CalendarID,
			"date", req.Date,
			"time", req.Time,
			"error", err)
		http.Error(w, `{"ok": false, "error": "booking_failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(bookResponse{OK: true, EventID: result.EventID}); err != nil {
		h.logger.Error("failed to encode booking response", "error", err)
	}
}
