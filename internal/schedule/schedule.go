// Package schedule holds per-calendar booking profiles: the scheduling
// defaults applied when an availability or booking request omits a field.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Profile holds the scheduling defaults for one calendar.
type Profile struct {
	CalendarID     string `json:"calendarId"`
	Timezone       string `json:"timezone"`
	WorkStart      string `json:"workStart"`
	WorkEnd        string `json:"workEnd"`
	DurationMin    int    `json:"durationMin"`
	StepMin        int    `json:"stepMin"`
	MaxSuggestions int    `json:"maxSuggestions"`
}

// DefaultProfile returns the built-in scheduling defaults.
func DefaultProfile(calendarID, timezone string) *Profile {
	return &Profile{
		CalendarID:     calendarID,
		Timezone:       timezone,
		WorkStart:      "09:00",
		WorkEnd:        "19:00",
		DurationMin:    45,
		StepMin:        15,
		MaxSuggestions: 3,
	}
}

// Store provides persistence for booking profiles.
type Store struct {
	redis           *redis.Client
	defaultTimezone string
}

// NewStore creates a new booking profile store.
func NewStore(redisClient *redis.Client, defaultTimezone string) *Store {
	return &Store{redis: redisClient, defaultTimezone: defaultTimezone}
}

func (s *Store) key(calendarID string) string {
	return fmt.Sprintf("schedule:profile:%s", calendarID)
}

// Defaults returns the built-in profile for a calendar without touching Redis.
func (s *Store) Defaults(calendarID string) *Profile {
	return DefaultProfile(calendarID, s.defaultTimezone)
}

// Get retrieves the profile for a calendar, returning defaults if not found.
func (s *Store) Get(ctx context.Context, calendarID string) (*Profile, error) {
	data, err := s.redis.Get(ctx, s.key(calendarID)).Bytes()
	if err == redis.Nil {
		return s.Defaults(calendarID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("schedule: unmarshal profile: %w", err)
	}
	p.CalendarID = calendarID
	p.fillUnset(s.Defaults(calendarID))
	return &p, nil
}

// fillUnset completes a partially stored profile so consumers never see a
// zero step or duration.
func (p *Profile) fillUnset(defaults *Profile) {
	if p.Timezone == "" {
		p.Timezone = defaults.Timezone
	}
	if p.WorkStart == "" {
		p.WorkStart = defaults.WorkStart
	}
	if p.WorkEnd == "" {
		p.WorkEnd = defaults.WorkEnd
	}
	if p.DurationMin <= 0 {
		p.DurationMin = defaults.DurationMin
	}
	if p.StepMin <= 0 {
		p.StepMin = defaults.StepMin
	}
	if p.MaxSuggestions <= 0 {
		p.MaxSuggestions = defaults.MaxSuggestions
	}
}

// Set saves a booking profile.
func (s *Store) Set(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("schedule: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(p.CalendarID), data, 0).Err(); err != nil {
		return fmt.Errorf("schedule: set profile: %w", err)
	}
	return nil
}
