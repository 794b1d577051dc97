package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agendero/agendero/internal/gcal"
	"github.com/agendero/agendero/internal/notify"
	"github.com/agendero/agendero/internal/schedule"
	"github.com/agendero/agendero/internal/timeslot"
	"github.com/agendero/agendero/pkg/logging"
)

type fakeCreator struct {
	calendarID string
	slot       timeslot.Slot
	meta       gcal.EventMetadata
	calls      int
	err        error
}

func (f *fakeCreator) CreateEvent(_ context.Context, calendarID string, slot timeslot.Slot, meta gcal.EventMetadata) (string, error) {
	f.calls++
	f.calendarID = calendarID
	f.slot = slot
	f.meta = meta
	if f.err != nil {
		return "", f.err
	}
	return "evt-123", nil
}

type fakeProfiles struct {
	profile *schedule.Profile
	err     error
}

func (f *fakeProfiles) Get(_ context.Context, calendarID string) (*schedule.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.profile != nil {
		p := *f.profile
		p.CalendarID = calendarID
		return &p, nil
	}
	return schedule.DefaultProfile(calendarID, "UTC"), nil
}

func (f *fakeProfiles) Defaults(calendarID string) *schedule.Profile {
	return schedule.DefaultProfile(calendarID, "UTC")
}

type fakeNotifier struct {
	ch chan notify.Booking
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan notify.Booking, 1)}
}

func (f *fakeNotifier) BookingCreated(_ context.Context, b notify.Booking) error {
	f.ch <- b
	return nil
}

func newTestService(creator *fakeCreator, notifier staffNotifier) *Service {
	return NewService(creator, &fakeProfiles{}, notifier, nil, logging.New("error"))
}

func baseRequest() Request {
	return Request{
		CalendarID:   "cal-1",
		Date:         "2026-09-14",
		Time:         "10:00",
		CustomerName: "Ana Gomez",
		Phone:        "+5491155512345",
		ServiceName:  "Limpieza facial",
	}
}

func TestBookCreatesEvent(t *testing.T) {
	creator := &fakeCreator{}
	svc := newTestService(creator, nil)

	result, err := svc.Book(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EventID != "evt-123" {
		t.Fatalf("expected evt-123, got %s", result.EventID)
	}
	// Booking never checks availability: exactly one gateway call.
	if creator.calls != 1 {
		t.Fatalf("expected 1 gateway call, got %d", creator.calls)
	}
	if creator.calendarID != "cal-1" {
		t.Fatalf("unexpected calendar id %s", creator.calendarID)
	}
	if got := creator.slot.StartClock(); got != "10:00" {
		t.Fatalf("expected slot at 10:00, got %s", got)
	}
	if got := creator.slot.Duration(); got != 45*time.Minute {
		t.Fatalf("expected default 45m duration, got %s", got)
	}
	if creator.meta.CustomerName != "Ana Gomez" || creator.meta.ServiceName != "Limpieza facial" {
		t.Fatalf("unexpected metadata %+v", creator.meta)
	}
}

func TestBookAppliesProfileDefaults(t *testing.T) {
	creator := &fakeCreator{}
	profiles := &fakeProfiles{profile: &schedule.Profile{
		Timezone:    "America/Argentina/Buenos_Aires",
		WorkStart:   "09:00",
		WorkEnd:     "19:00",
		DurationMin: 30,
		StepMin:     15,
	}}
	svc := NewService(creator, profiles, nil, nil, logging.New("error"))

	if _, err := svc.Book(context.Background(), baseRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := creator.slot.Duration(); got != 30*time.Minute {
		t.Fatalf("expected profile duration, got %s", got)
	}
	if got := creator.slot.Start.Location().String(); got != "America/Argentina/Buenos_Aires" {
		t.Fatalf("expected profile timezone, got %s", got)
	}
}

func TestBookRequestOverridesProfile(t *testing.T) {
	creator := &fakeCreator{}
	svc := newTestService(creator, nil)

	req := baseRequest()
	req.DurationMin = 90

	if _, err := svc.Book(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := creator.slot.Duration(); got != 90*time.Minute {
		t.Fatalf("expected request duration to win, got %s", got)
	}
}

func TestBookProfileReadFailureFallsBack(t *testing.T) {
	creator := &fakeCreator{}
	profiles := &fakeProfiles{err: errors.New("redis down")}
	svc := NewService(creator, profiles, nil, nil, logging.New("error"))

	result, err := svc.Book(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("expected profile failure to degrade, got %v", err)
	}
	if result.EventID != "evt-123" {
		t.Fatalf("expected booking to succeed, got %+v", result)
	}
	if got := creator.slot.Duration(); got != 45*time.Minute {
		t.Fatalf("expected default duration, got %s", got)
	}
}

func TestBookUpstreamErrorPropagates(t *testing.T) {
	upstreamErr := errors.New("calendar offline")
	creator := &fakeCreator{err: upstreamErr}
	notifier := newFakeNotifier()
	svc := newTestService(creator, notifier)

	result, err := svc.Book(context.Background(), baseRequest())
	if !errors.Is(err, upstreamErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	select {
	case b := <-notifier.ch:
		t.Fatalf("expected no notification on failure, got %+v", b)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBookNotifiesStaff(t *testing.T) {
	creator := &fakeCreator{}
	notifier := newFakeNotifier()
	svc := newTestService(creator, notifier)

	req := baseRequest()
	req.ConfirmationCode = "AG-7431"

	if _, err := svc.Book(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case b := <-notifier.ch:
		if b.EventID != "evt-123" {
			t.Fatalf("expected event id propagated, got %s", b.EventID)
		}
		if b.CustomerName != "Ana Gomez" || b.ConfirmationCode != "AG-7431" {
			t.Fatalf("unexpected notification %+v", b)
		}
		if b.DurationMin != 45 {
			t.Fatalf("expected resolved duration in notification, got %d", b.DurationMin)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected staff notification")
	}
}

func TestBookWithoutNotifier(t *testing.T) {
	creator := &fakeCreator{}
	svc := newTestService(creator, nil)

	if _, err := svc.Book(context.Background(), baseRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBookInvalidDate(t *testing.T) {
	creator := &fakeCreator{}
	svc := newTestService(creator, nil)

	req := baseRequest()
	req.Date = "14/09/2026"

	if _, err := svc.Book(context.Background(), req); err == nil {
		t.Fatal("expected error for malformed date")
	}
	if creator.calls != 0 {
		t.Fatalf("expected no gateway call, got %d", creator.calls)
	}
}
