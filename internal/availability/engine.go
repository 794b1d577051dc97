// Package availability implements the slot availability check and the
// forward scan that proposes alternative start times when the requested
// slot is taken.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/agendero/agendero/internal/gcal"
	"github.com/agendero/agendero/internal/observability/metrics"
	"github.com/agendero/agendero/internal/schedule"
	"github.com/agendero/agendero/internal/timeslot"
	"github.com/agendero/agendero/pkg/logging"
)

// searchCap bounds how far past the requested start the forward scan may
// advance, which also bounds the free/busy query volume per request.
const searchCap = 180 * time.Minute

// Request carries one availability check. Zero numeric fields and empty
// strings mean "absent": they are filled from the calendar's booking
// profile, then from the process defaults.
type Request struct {
	CalendarID     string `json:"calendarId"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	DurationMin    int    `json:"durationMin"`
	Timezone       string `json:"timezone"`
	WorkStart      string `json:"workStart"`
	WorkEnd        string `json:"workEnd"`
	StepMin        int    `json:"stepMin"`
	MaxSuggestions int    `json:"maxSuggestions"`
}

// Result is the outcome of one availability check. Suggestions holds
// confirmed-free alternative start times as HH:mm wall clocks in the
// request timezone, in scan order.
type Result struct {
	Available   bool
	Suggestions []string
}

type busyQuerier interface {
	QueryBusy(ctx context.Context, calendarID string, slot timeslot.Slot) ([]gcal.BusyInterval, error)
}

type profileSource interface {
	Get(ctx context.Context, calendarID string) (*schedule.Profile, error)
	Defaults(calendarID string) *schedule.Profile
}

// Engine runs availability checks against the calendar gateway.
type Engine struct {
	gateway  busyQuerier
	profiles profileSource
	metrics  *metrics.AvailabilityMetrics
	logger   *logging.Logger
}

// NewEngine creates the availability engine.
func NewEngine(gateway busyQuerier, profiles profileSource, m *metrics.AvailabilityMetrics, logger *logging.Logger) *Engine {
	if gateway == nil {
		panic("availability: gateway cannot be nil")
	}
	if profiles == nil {
		panic("availability: profile source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		gateway:  gateway,
		profiles: profiles,
		metrics:  m,
		logger:   logger,
	}
}

// resolve fills absent request fields from the calendar's booking profile.
// A profile read failure degrades to the built-in defaults and never fails
// the check.
func (e *Engine) resolve(ctx context.Context, req Request) Request {
	profile, err := e.profiles.Get(ctx, req.CalendarID)
	if err != nil {
		e.logger.Warn("booking profile unavailable, using defaults", "calendar_id", req.CalendarID, "error", err)
		profile = e.profiles.Defaults(req.CalendarID)
	}
	if req.DurationMin <= 0 {
		req.DurationMin = profile.DurationMin
	}
	if req.Timezone == "" {
		req.Timezone = profile.Timezone
	}
	if req.WorkStart == "" {
		req.WorkStart = profile.WorkStart
	}
	if req.WorkEnd == "" {
		req.WorkEnd = profile.WorkEnd
	}
	if req.StepMin <= 0 {
		req.StepMin = profile.StepMin
	}
	if req.MaxSuggestions <= 0 {
		req.MaxSuggestions = profile.MaxSuggestions
	}
	return req
}

// Check reports whether the requested slot is free. When it is not, the
// engine scans forward in StepMin increments for free candidates within
// the working-hours envelope, stopping at whichever comes first: the
// search cap, the envelope boundary, or MaxSuggestions collected. Any
// query failure aborts the whole check; there are no partial results.
func (e *Engine) Check(ctx context.Context, req Request) (*Result, error) {
	req = e.resolve(ctx, req)

	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		e.metrics.ObserveCheck("error")
		return nil, fmt.Errorf("availability: load timezone %q: %w", req.Timezone, err)
	}

	primary, err := timeslot.New(req.Date, req.Time, req.DurationMin, loc)
	if err != nil {
		e.metrics.ObserveCheck("error")
		return nil, fmt.Errorf("availability: primary slot: %w", err)
	}

	dayStart, err := timeslot.At(req.Date, req.WorkStart, loc)
	if err != nil {
		e.metrics.ObserveCheck("error")
		return nil, fmt.Errorf("availability: work start: %w", err)
	}
	dayEnd, err := timeslot.At(req.Date, req.WorkEnd, loc)
	if err != nil {
		e.metrics.ObserveCheck("error")
		return nil, fmt.Errorf("availability: work end: %w", err)
	}
	if !dayStart.Before(dayEnd) {
		e.metrics.ObserveCheck("error")
		return nil, fmt.Errorf("availability: working hours %s-%s are empty", req.WorkStart, req.WorkEnd)
	}
	if req.StepMin <= 0 {
		e.metrics.ObserveCheck("error")
		return nil, fmt.Errorf("availability: step must be positive, got %d", req.StepMin)
	}

	// The primary slot is checked as requested, even outside the envelope.
	busy, err := e.queryBusy(ctx, req.CalendarID, primary)
	if err != nil {
		e.metrics.ObserveCheck("error")
		return nil, err
	}
	if len(busy) == 0 {
		// Strict short-circuit: no scan once the primary slot is free.
		e.metrics.ObserveCheck("free")
		return &Result{Available: true, Suggestions: []string{}}, nil
	}

	suggestions := make([]string, 0, req.MaxSuggestions)
	step := time.Duration(req.StepMin) * time.Minute
	for cursor := primary.Start.Add(step); len(suggestions) < req.MaxSuggestions; cursor = cursor.Add(step) {
		if cursor.Sub(primary.Start) > searchCap {
			break
		}
		cand := timeslot.FromStart(cursor, req.DurationMin)
		// No wrap, no clamp: the first candidate outside the envelope
		// ends the scan. A candidate ending exactly at workEnd fits.
		if cand.Start.Before(dayStart) || cand.End.After(dayEnd) {
			break
		}
		candBusy, err := e.queryBusy(ctx, req.CalendarID, cand)
		if err != nil {
			e.metrics.ObserveCheck("error")
			return nil, err
		}
		if len(candBusy) == 0 {
			suggestions = append(suggestions, cand.StartClock())
		}
	}

	e.metrics.ObserveCheck("busy")
	e.metrics.ObserveSuggestions(len(suggestions))
	return &Result{Available: false, Suggestions: suggestions}, nil
}

func (e *Engine) queryBusy(ctx context.Context, calendarID string, slot timeslot.Slot) ([]gcal.BusyInterval, error) {
	busy, err := e.gateway.QueryBusy(ctx, calendarID, slot)
	if err != nil {
		e.metrics.ObserveFreeBusyQuery("error")
		return nil, err
	}
	e.metrics.ObserveFreeBusyQuery("ok")
	return busy, nil
}
