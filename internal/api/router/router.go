// Package router wires the HTTP surface: the bot-facing availability and
// booking endpoints, the one-time OAuth flow, calendar administration,
// and the operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agendero/agendero/internal/availability"
	"github.com/agendero/agendero/internal/booking"
	"github.com/agendero/agendero/internal/calendars"
	"github.com/agendero/agendero/internal/googleauth"
	httpmiddleware "github.com/agendero/agendero/internal/http/middleware"
	"github.com/agendero/agendero/internal/ops"
	"github.com/agendero/agendero/internal/schedule"
	"github.com/agendero/agendero/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AuthHandler         *googleauth.Handler
	AvailabilityHandler *availability.Handler
	BookingHandler      *booking.Handler
	CalendarsHandler    *calendars.Handler
	ProfileHandler      *schedule.Handler
	StatsHandler        *ops.StatsHandler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
	RateLimitRPS        float64
	RateLimitBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, burst))
	}

	r.Get("/", healthCheck)
	r.Get("/health", healthCheck)

	if cfg.AuthHandler != nil {
		r.Get("/auth", cfg.AuthHandler.HandleAuth)
		r.Get("/oauth2callback", cfg.AuthHandler.HandleCallback)
	}
	if cfg.CalendarsHandler != nil {
		r.Get("/calendars/list", cfg.CalendarsHandler.HandleList)
	}
	if cfg.AvailabilityHandler != nil {
		r.Post("/availability", cfg.AvailabilityHandler.HandleCheck)
	}
	if cfg.BookingHandler != nil {
		r.Post("/book", cfg.BookingHandler.HandleBook)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.StatsHandler != nil {
		r.Get("/stats", cfg.StatsHandler.HandleStats)
	}

	// Calendar administration. Gated behind the admin JWT only when a
	// secret is configured; otherwise mounted public like the rest of
	// the surface.
	adminRoutes := func(admin chi.Router) {
		if cfg.CalendarsHandler != nil {
			admin.Post("/calendars/create", cfg.CalendarsHandler.HandleCreate)
		}
		if cfg.ProfileHandler != nil {
			admin.Get("/calendars/{calendarID}/profile", cfg.ProfileHandler.HandleGet)
			admin.Put("/calendars/{calendarID}/profile", cfg.ProfileHandler.HandleUpdate)
		}
	}
	if cfg.AdminAuthSecret != "" {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			adminRoutes(admin)
		})
	} else {
		r.Group(adminRoutes)
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
