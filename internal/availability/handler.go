package availability

import (
	"encoding/json"
	"net/http"

	"github.com/agendero/agendero/pkg/logging"
)

// Handler serves the availability check endpoint consumed by the
// WhatsApp bot.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

// NewHandler creates an availability handler.
func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("availability: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// availabilityResponse is the bot-facing wire format. The field names are
// the Spanish words the bot's conversation templates expect.
type availabilityResponse struct {
	Available   bool     `json:"disponible"`
	Suggestions []string `json:"sugerencias"`
}

// HandleCheck handles POST /availability.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid_json"}`, http.StatusBadRequest)
		return
	}

	// Required fields are rejected before any calendar traffic.
	if req.CalendarID == "" || req.Date == "" || req.Time == "" {
		http.Error(w, `{"error": "missing_fields"}`, http.StatusBadRequest)
		return
	}

	result, err := h.engine.Check(r.Context(), req)
	if err != nil {
		h.logger.Error("availability check failed",
			"calendar_id", req.CalendarID,
			"date", req.Date,
			"time", req.Time,
			"error", err)
		http.Error(w, `{"error": "availability_failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(availabilityResponse{
		Available:   result.Available,
		Suggestions: result.Suggestions,
	}); err != nil {
		h.logger.Error("failed to encode availability response", "error", err)
	}
}
