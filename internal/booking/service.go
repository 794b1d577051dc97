// Package booking creates calendar events for appointment requests coming
// from the WhatsApp bot.
package booking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agendero/agendero/internal/gcal"
	"github.com/agendero/agendero/internal/notify"
	"github.com/agendero/agendero/internal/observability/metrics"
	"github.com/agendero/agendero/internal/schedule"
	"github.com/agendero/agendero/internal/timeslot"
	"github.com/agendero/agendero/pkg/logging"
)

var bookingTracer = otel.Tracer("agendero.internal.booking")

// Request carries one booking. The slot fields resolve exactly like an
// availability check; the metadata fields are free text from the bot.
type Request struct {
	CalendarID       string `json:"calendarId"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	DurationMin      int    `json:"durationMin"`
	Timezone         string `json:"timezone"`
	CustomerName     string `json:"customerName"`
	Phone            string `json:"phone"`
	ServiceName      string `json:"serviceName"`
	StaffName        string `json:"staffName"`
	Note             string `json:"note"`
	ConfirmationCode string `json:"confirmationCode"`
}

// Result is the outcome of a successful booking.
type Result struct {
	EventID string
}

type eventCreator interface {
	CreateEvent(ctx context.Context, calendarID string, slot timeslot.Slot, meta gcal.EventMetadata) (string, error)
}

type profileSource interface {
	Get(ctx context.Context, calendarID string) (*schedule.Profile, error)
	Defaults(calendarID string) *schedule.Profile
}

type staffNotifier interface {
	BookingCreated(ctx context.Context, b notify.Booking) error
}

// Service books appointments into Google Calendar.
type Service struct {
	gateway  eventCreator
	profiles profileSource
	notifier staffNotifier
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// NewService creates the booking service. The notifier may be nil.
func NewService(gateway eventCreator, profiles profileSource, notifier staffNotifier, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if gateway == nil {
		panic("booking: gateway cannot be nil")
	}
	if profiles == nil {
		panic("booking: profile source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		gateway:  gateway,
		profiles: profiles,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// resolve fills absent slot fields from the calendar's booking profile,
// degrading to the built-in defaults when the profile cannot be read.
func (s *Service) resolve(ctx context.Context, req Request) Request {
	profile, err := s.profiles.Get(ctx, req.CalendarID)
	if err != nil {
		s.logger.Warn("booking profile unavailable, using defaults", "calendar_id", req.CalendarID, "error", err)
		profile = s.profiles.Defaults(req.CalendarID)
	}
	if req.DurationMin <= 0 {
		req.DurationMin = profile.DurationMin
	}
	if req.Timezone == "" {
		req.Timezone = profile.Timezone
	}
	return req
}

// Book creates the calendar event for the requested slot. It performs no
// availability check: booking and availability are independent operations
// and callers decide whether to check first. After a successful insert the
// staff notification is dispatched on a detached goroutine so a slow email
// provider never delays the bot's reply.
func (s *Service) Book(ctx context.Context, req Request) (*Result, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("agendero.calendar_id", req.CalendarID),
		attribute.String("agendero.date", req.Date),
	)

	req = s.resolve(ctx, req)

	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("booking: load timezone %q: %w", req.Timezone, err)
	}

	slot, err := timeslot.New(req.Date, req.Time, req.DurationMin, loc)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("booking: slot: %w", err)
	}

	meta := gcal.EventMetadata{
		CustomerName:     req.CustomerName,
		Phone:            req.Phone,
		ServiceName:      req.ServiceName,
		StaffName:        req.StaffName,
		Note:             req.Note,
		ConfirmationCode: req.ConfirmationCode,
	}

	eventID, err := s.gateway.CreateEvent(ctx, req.CalendarID, slot, meta)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("error")
		return nil, err
	}

	s.metrics.ObserveBooking("ok")
	s.logger.Info("appointment booked",
		"calendar_id", req.CalendarID,
		"event_id", eventID,
		"start", slot.Start.Format(time.RFC3339))

	if s.notifier != nil {
		booking := notify.Booking{
			CalendarID:       req.CalendarID,
			EventID:          eventID,
			CustomerName:     req.CustomerName,
			Phone:            req.Phone,
			ServiceName:      req.ServiceName,
			StaffName:        req.StaffName,
			Note:             req.Note,
			ConfirmationCode: req.ConfirmationCode,
			Start:            slot.Start,
			DurationMin:      req.DurationMin,
		}
		go func() {
			bgCtx := context.Background()
			if err := s.notifier.BookingCreated(bgCtx, booking); err != nil {
				s.logger.Error("staff notification failed", "event_id", booking.EventID, "error", err)
			}
		}()
	}

	return &Result{EventID: eventID}, nil
}
