package schedule

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/agendero/agendero/internal/http/middleware"
	"github.com/agendero/agendero/pkg/logging"
)

// Handler provides HTTP endpoints for booking profile management.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a new booking profile HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// HandleGet returns the booking profile for a calendar, defaults when unset.
// GET /calendars/{calendarID}/profile
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	calendarID := chi.URLParam(r, "calendarID")
	if calendarID == "" {
		http.Error(w, `{"error": "missing_fields"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.store.Get(r.Context(), calendarID)
	if err != nil {
		h.logger.Error("failed to get booking profile", "calendar_id", calendarID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(profile); err != nil {
		h.logger.Error("failed to encode booking profile", "calendar_id", calendarID, "error", err)
	}
}

// UpdateProfileRequest is the request body for updating a booking profile.
type UpdateProfileRequest struct {
	Timezone       string `json:"timezone,omitempty"`
	WorkStart      string `json:"workStart,omitempty"`
	WorkEnd        string `json:"workEnd,omitempty"`
	DurationMin    *int   `json:"durationMin,omitempty"`
	StepMin        *int   `json:"stepMin,omitempty"`
	MaxSuggestions *int   `json:"maxSuggestions,omitempty"`
}

func (req *UpdateProfileRequest) validate() bool {
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return false
		}
	}
	for _, clock := range []string{req.WorkStart, req.WorkEnd} {
		if clock == "" {
			continue
		}
		if _, err := time.Parse("15:04", clock); err != nil {
			return false
		}
	}
	for _, n := range []*int{req.DurationMin, req.StepMin, req.MaxSuggestions} {
		if n != nil && *n <= 0 {
			return false
		}
	}
	return true
}

// HandleUpdate creates or updates the booking profile for a calendar.
// Absent fields keep their stored (or default) values.
// PUT /calendars/{calendarID}/profile
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	calendarID := chi.URLParam(r, "calendarID")
	if calendarID == "" {
		http.Error(w, `{"error": "missing_fields"}`, http.StatusBadRequest)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid_json"}`, http.StatusBadRequest)
		return
	}
	if !req.validate() {
		http.Error(w, `{"error": "invalid_values"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.store.Get(r.Context(), calendarID)
	if err != nil {
		h.logger.Error("failed to get booking profile", "calendar_id", calendarID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Timezone != "" {
		profile.Timezone = req.Timezone
	}
	if req.WorkStart != "" {
		profile.WorkStart = req.WorkStart
	}
	if req.WorkEnd != "" {
		profile.WorkEnd = req.WorkEnd
	}
	if req.DurationMin != nil {
		profile.DurationMin = *req.DurationMin
	}
	if req.StepMin != nil {
		profile.StepMin = *req.StepMin
	}
	if req.MaxSuggestions != nil {
		profile.MaxSuggestions = *req.MaxSuggestions
	}

	if err := h.store.Set(r.Context(), profile); err != nil {
		h.logger.Error("failed to save booking profile", "calendar_id", calendarID, "error", err)
		http.Error(w, `{"error": "failed to save profile"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("booking profile updated",
		"calendar_id", calendarID,
		"updated_by", httpmiddleware.AdminSubject(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(profile); err != nil {
		h.logger.Error("failed to encode booking profile", "calendar_id", calendarID, "error", err)
	}
}
