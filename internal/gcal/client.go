// Package gcal adapts domain calls ("is this interval busy", "create this
// event") into Google Calendar v3 requests. The credential is resolved from
// the token store on every call; request handling never mutates it.
package gcal

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/agendero/agendero/internal/googleauth"
	"github.com/agendero/agendero/internal/observability/metrics"
	"github.com/agendero/agendero/internal/timeslot"
	"github.com/agendero/agendero/pkg/logging"
)

var calendarTracer = otel.Tracer("agendero.internal.gcal")

// Client talks to the Google Calendar API on behalf of the stored credential.
type Client struct {
	oauth   *oauth2.Config
	tokens  *googleauth.Store
	metrics *metrics.CalendarMetrics
	logger  *logging.Logger
	opts    []option.ClientOption
}

// Config holds configuration for the calendar client.
type Config struct {
	OAuth   *oauth2.Config
	Tokens  *googleauth.Store
	Metrics *metrics.CalendarMetrics
	Logger  *logging.Logger
	// Options are appended to the generated service options; tests use
	// them to point the client at a fake calendar endpoint.
	Options []option.ClientOption
}

// New creates a new Google Calendar client.
func New(cfg Config) (*Client, error) {
	if cfg.OAuth == nil {
		return nil, fmt.Errorf("gcal: OAuth config is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("gcal: token store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		oauth:   cfg.OAuth,
		tokens:  cfg.Tokens,
		metrics: cfg.Metrics,
		logger:  logger,
		opts:    cfg.Options,
	}, nil
}

// service builds an authorized calendar service for one call. The token is
// checked before any network I/O so a missing credential surfaces as
// googleauth.ErrMissingTokens instead of a confusing API error.
func (c *Client) service(ctx context.Context) (*calendar.Service, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("gcal: credential: %w", err)
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(c.oauth.Client(ctx, tok))}, c.opts...)
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: build service: %v", ErrUpstream, err)
	}
	return srv, nil
}

// QueryBusy runs one free/busy query for one calendar and one interval.
// A calendar missing from the response means nothing is scheduled there.
func (c *Client) QueryBusy(ctx context.Context, calendarID string, slot timeslot.Slot) ([]BusyInterval, error) {
	ctx, span := calendarTracer.Start(ctx, "gcal.freebusy.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("agendero.calendar_id", calendarID),
		attribute.String("agendero.slot_start", slot.Start.Format(time.RFC3339)),
	)

	srv, err := c.service(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	req := &calendar.FreeBusyRequest{
		TimeMin:  slot.Start.Format(time.RFC3339),
		TimeMax:  slot.End.Format(time.RFC3339),
		TimeZone: slot.Start.Location().String(),
		Items:    []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}

	started := time.Now()
	resp, err := srv.Freebusy.Query(req).Context(ctx).Do()
	c.metrics.ObserveAPILatency("freebusy.query", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: freebusy query: %v", ErrUpstream, err)
	}

	entry, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, nil
	}

	busy := make([]BusyInterval, 0, len(entry.Busy))
	for _, period := range entry.Busy {
		interval, err := parsePeriod(period)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		busy = append(busy, interval)
	}
	return busy, nil
}

// CreateEvent inserts an appointment event and returns its id.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, slot timeslot.Slot, meta EventMetadata) (string, error) {
	ctx, span := calendarTracer.Start(ctx, "gcal.events.insert")
	defer span.End()
	span.SetAttributes(attribute.String("agendero.calendar_id", calendarID))

	srv, err := c.service(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	tz := slot.Start.Location().String()
	event := &calendar.Event{
		Summary:     meta.Summary(),
		Description: meta.Description(),
		Start: &calendar.EventDateTime{
			DateTime: slot.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: slot.End.Format(time.RFC3339),
			TimeZone: tz,
		},
	}

	started := time.Now()
	created, err := srv.Events.Insert(calendarID, event).Context(ctx).Do()
	c.metrics.ObserveAPILatency("events.insert", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: events insert: %v", ErrUpstream, err)
	}

	c.logger.Info("calendar event created", "calendar_id", calendarID, "event_id", created.Id)
	return created.Id, nil
}

// ListCalendars returns every calendar visible to the credential.
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	ctx, span := calendarTracer.Start(ctx, "gcal.calendarlist.list")
	defer span.End()

	srv, err := c.service(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	started := time.Now()
	resp, err := srv.CalendarList.List().Context(ctx).Do()
	c.metrics.ObserveAPILatency("calendarlist.list", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: calendar list: %v", ErrUpstream, err)
	}

	infos := make([]CalendarInfo, 0, len(resp.Items))
	for _, item := range resp.Items {
		infos = append(infos, CalendarInfo{
			Summary:  item.Summary,
			ID:       item.Id,
			Primary:  item.Primary,
			TimeZone: item.TimeZone,
		})
	}
	return infos, nil
}

// CreateCalendar creates a secondary calendar and returns its id.
func (c *Client) CreateCalendar(ctx context.Context, summary, timeZone string) (string, error) {
	ctx, span := calendarTracer.Start(ctx, "gcal.calendars.insert")
	defer span.End()
	span.SetAttributes(attribute.String("agendero.calendar_summary", summary))

	srv, err := c.service(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	started := time.Now()
	created, err := srv.Calendars.Insert(&calendar.Calendar{Summary: summary, TimeZone: timeZone}).Context(ctx).Do()
	c.metrics.ObserveAPILatency("calendars.insert", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: calendars insert: %v", ErrUpstream, err)
	}

	c.logger.Info("calendar created", "calendar_id", created.Id, "summary", summary)
	return created.Id, nil
}

func parsePeriod(period *calendar.TimePeriod) (BusyInterval, error) {
	start, err := time.Parse(time.RFC3339, period.Start)
	if err != nil {
		return BusyInterval{}, fmt.Errorf("%w: parse busy start %q: %v", ErrUpstream, period.Start, err)
	}
	end, err := time.Parse(time.RFC3339, period.End)
	if err != nil {
		return BusyInterval{}, fmt.Errorf("%w: parse busy end %q: %v", ErrUpstream, period.End, err)
	}
	return BusyInterval{Start: start, End: end}, nil
}
