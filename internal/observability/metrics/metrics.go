package metrics

import "github.com/prometheus/client_golang/prometheus"

// AvailabilityMetrics exposes counters/histograms for availability checks.
type AvailabilityMetrics struct {
	checksTotal      *prometheus.CounterVec
	suggestionsCount prometheus.Histogram
	freebusyQueries  *prometheus.CounterVec
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendero",
			Subsystem: "availability",
			Name:      "checks_total",
			Help:      "Total availability checks by outcome",
		}, []string{"outcome"}),
		suggestionsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agendero",
			Subsystem: "availability",
			Name:      "suggestions_returned",
			Help:      "Number of alternative slots returned per busy check",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		freebusyQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendero",
			Subsystem: "availability",
			Name:      "freebusy_queries_total",
			Help:      "Total free/busy queries issued against Google Calendar",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checksTotal, m.suggestionsCount, m.freebusyQueries)
	return m
}

func (m *AvailabilityMetrics) ObserveCheck(outcome string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
}

func (m *AvailabilityMetrics) ObserveSuggestions(count int) {
	if m == nil {
		return
	}
	m.suggestionsCount.Observe(float64(count))
}

func (m *AvailabilityMetrics) ObserveFreeBusyQuery(status string) {
	if m == nil {
		return
	}
	m.freebusyQueries.WithLabelValues(status).Inc()
}

// BookingMetrics exposes counters for booking outcomes and the staff
// notifications dispatched after them.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendero",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Total booking attempts by status",
		}, []string{"status"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendero",
			Subsystem: "booking",
			Name:      "staff_notifications_total",
			Help:      "Total staff notification dispatches by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.notificationsTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveStaffNotification(status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}

// CalendarMetrics exposes latency histograms for Google Calendar calls.
type CalendarMetrics struct {
	apiLatency *prometheus.HistogramVec
}

func NewCalendarMetrics(reg prometheus.Registerer) *CalendarMetrics {
	m := &CalendarMetrics{
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agendero",
			Subsystem: "calendar",
			Name:      "api_latency_seconds",
			Help:      "Latency of Google Calendar API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.apiLatency)
	return m
}

func (m *CalendarMetrics) ObserveAPILatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.apiLatency.WithLabelValues(operation).Observe(seconds)
}
