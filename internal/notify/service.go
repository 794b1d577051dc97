// Package notify emails staff about appointments booked through the API.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agendero/agendero/internal/observability/metrics"
	"github.com/agendero/agendero/pkg/logging"
)

// Booking carries the appointment details staff are notified about.
type Booking struct {
	CalendarID       string
	EventID          string
	CustomerName     string
	Phone            string
	ServiceName      string
	StaffName        string
	Note             string
	ConfirmationCode string
	Start            time.Time
	DurationMin      int
}

// Service sends staff notifications for new bookings.
type Service struct {
	email      EmailSender
	recipients []string
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
}

// NewService creates a notification service. A nil sender or an empty
// recipient list turns the service into a no-op.
func NewService(email EmailSender, recipients []string, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		metrics:    m,
		logger:     logger,
	}
}

// BookingCreated emails every configured staff recipient a summary of the
// new appointment. The booking has already happened: failures are logged
// and counted, never propagated to the customer flow.
func (s *Service) BookingCreated(ctx context.Context, b Booking) error {
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: no staff recipients configured, skipping notification")
		return nil
	}

	customer := b.CustomerName
	if customer == "" {
		customer = "A customer"
	}

	when := b.Start.Format("Monday, January 2 at 15:04")
	subject := fmt.Sprintf("📅 New appointment - %s", customer)

	body := fmt.Sprintf(`%s booked an appointment.

Customer: %s
Phone: %s
When: %s (%d min)%s%s%s%s

Status: pending confirmation. Please reach out to confirm.

— Agendero`, customer, customer, b.Phone, when, b.DurationMin,
		s.formatLine("Service", b.ServiceName),
		s.formatLine("Staff", b.StaffName),
		s.formatLine("Confirmation code", b.ConfirmationCode),
		s.formatLine("Note", b.Note))

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #2563eb;">📅 New Appointment</h2>
<p><strong>%s</strong> booked an appointment via the WhatsApp bot.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Customer:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Phone:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><a href="tel:%s">%s</a></td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>When:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s (%d min)</td></tr>
  %s%s%s%s
</table>
<p style="background: #eff6ff; padding: 12px; border-radius: 8px; border-left: 4px solid #2563eb;">
  ⏳ <strong>Pending confirmation</strong> — please reach out to confirm the slot.
</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— Agendero</p>
</div>`,
		customer, customer, b.Phone, b.Phone, when, b.DurationMin,
		s.formatRowHTML("Service", b.ServiceName),
		s.formatRowHTML("Staff", b.StaffName),
		s.formatRowHTML("Confirmation code", b.ConfirmationCode),
		s.formatRowHTML("Note", b.Note))

	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{
			To:      recipient,
			Subject: subject,
			Body:    body,
			HTML:    html,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send booking email", "error", err, "to", recipient, "event_id", b.EventID)
			s.metrics.ObserveStaffNotification("error")
			errs = append(errs, err)
		} else {
			s.logger.Info("notify: booking email sent", "to", recipient, "event_id", b.EventID)
			s.metrics.ObserveStaffNotification("ok")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

func (s *Service) formatLine(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("\n%s: %s", label, value)
}

func (s *Service) formatRowHTML(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf(`<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`,
		label, strings.TrimSpace(value))
}
