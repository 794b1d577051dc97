// Package timeslot builds and formats appointment time windows. A slot is a
// half-open interval [Start, End) anchored to a wall clock in a specific
// IANA zone; DST resolution is delegated entirely to time.Date.
package timeslot

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Slot is a half-open time interval [Start, End).
type Slot struct {
	Start time.Time
	End   time.Time
}

// At composes a wall clock on a calendar date in the given zone.
func At(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeslot: parse date %q: %w", date, err)
	}
	wall, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeslot: parse clock %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), wall.Hour(), wall.Minute(), 0, 0, loc), nil
}

// New builds a slot of durationMin minutes starting at date+clock in loc.
func New(date, clock string, durationMin int, loc *time.Location) (Slot, error) {
	if durationMin <= 0 {
		return Slot{}, fmt.Errorf("timeslot: duration must be positive, got %d", durationMin)
	}
	start, err := At(date, clock, loc)
	if err != nil {
		return Slot{}, err
	}
	return FromStart(start, durationMin), nil
}

// FromStart builds a slot of durationMin minutes from an absolute start.
func FromStart(start time.Time, durationMin int) Slot {
	return Slot{Start: start, End: start.Add(time.Duration(durationMin) * time.Minute)}
}

// StartClock formats the slot start as HH:mm in the slot's own location.
func (s Slot) StartClock() string {
	return s.Start.Format(clockLayout)
}

// Duration returns the slot length.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// In re-renders both endpoints in loc without moving the instants.
func (s Slot) In(loc *time.Location) Slot {
	return Slot{Start: s.Start.In(loc), End: s.End.In(loc)}
}
