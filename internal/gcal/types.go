package gcal

import (
	"fmt"
	"strings"
	"time"
)

// BusyInterval is one occupied window reported by the free/busy query.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// CalendarInfo describes one calendar visible to the credential.
type CalendarInfo struct {
	Summary  string `json:"summary"`
	ID       string `json:"id"`
	Primary  bool   `json:"primary"`
	TimeZone string `json:"timeZone"`
}

// EventMetadata carries the customer details embedded in a booked event.
// All fields are free text and optional.
type EventMetadata struct {
	CustomerName     string
	Phone            string
	ServiceName      string
	StaffName        string
	Note             string
	ConfirmationCode string
}

// Summary renders the visible event title.
func (m EventMetadata) Summary() string {
	return fmt.Sprintf("%s - %s", m.ServiceName, m.CustomerName)
}

// Description renders the event body, one field per line in fixed order,
// closed by the status marker and the booking channel tag.
func (m EventMetadata) Description() string {
	lines := []string{
		"Customer: " + m.CustomerName,
		"Phone: " + m.Phone,
		"Service: " + m.ServiceName,
		"Staff: " + m.StaffName,
		"Note: " + m.Note,
		"Confirmation code: " + m.ConfirmationCode,
		"Status: pending confirmation",
		"Channel: whatsapp-bot",
	}
	return strings.Join(lines, "\n")
}
