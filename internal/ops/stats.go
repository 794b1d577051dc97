// Package ops serves the operational stats endpoint: a JSON snapshot of
// the process counters and free/busy latency distilled from the
// Prometheus registry.
package ops

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/agendero/agendero/pkg/logging"
)

// Stats is the /stats response body.
type Stats struct {
	AvailabilityChecks map[string]int64 `json:"availability_checks"`
	FreeBusyQueries    map[string]int64 `json:"freebusy_queries"`
	Bookings           map[string]int64 `json:"bookings"`
	StaffNotifications map[string]int64 `json:"staff_notifications"`
	FreeBusyLatency    LatencySnapshot  `json:"freebusy_latency"`
}

// LatencySnapshot summarizes one histogram.
type LatencySnapshot struct {
	Total int64   `json:"total"`
	P50Ms float64 `json:"p50_ms"`
	P90Ms float64 `json:"p90_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// StatsHandler renders the stats snapshot.
type StatsHandler struct {
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewStatsHandler creates a stats handler over the given gatherer.
func NewStatsHandler(gatherer prometheus.Gatherer, logger *logging.Logger) *StatsHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{gatherer: gatherer, logger: logger}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	mfs, err := h.gatherer.Gather()
	if err != nil {
		h.logger.Error("failed to gather metrics", "error", err)
		http.Error(w, `{"error": "stats_failed"}`, http.StatusInternalServerError)
		return
	}

	stats := Stats{
		AvailabilityChecks: map[string]int64{},
		FreeBusyQueries:    map[string]int64{},
		Bookings:           map[string]int64{},
		StaffNotifications: map[string]int64{},
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case "agendero_availability_checks_total":
			stats.AvailabilityChecks = counterByLabel(mf, "outcome")
		case "agendero_availability_freebusy_queries_total":
			stats.FreeBusyQueries = counterByLabel(mf, "status")
		case "agendero_booking_bookings_total":
			stats.Bookings = counterByLabel(mf, "status")
		case "agendero_booking_staff_notifications_total":
			stats.StaffNotifications = counterByLabel(mf, "status")
		case "agendero_calendar_api_latency_seconds":
			stats.FreeBusyLatency = snapshotLatency(mf, "operation", "freebusy.query")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode stats", "error", err)
	}
}

func counterByLabel(family *dto.MetricFamily, label string) map[string]int64 {
	out := map[string]int64{}
	for _, metric := range family.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		for _, lp := range metric.Label {
			if lp.GetName() == label {
				out[lp.GetValue()] += int64(metric.GetCounter().GetValue())
			}
		}
	}
	return out
}

// snapshotLatency aggregates the histogram series matching the given label
// and derives quantiles from the cumulative bucket counts.
func snapshotLatency(family *dto.MetricFamily, label, value string) LatencySnapshot {
	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64

	for _, metric := range family.Metric {
		if metric == nil {
			continue
		}
		if !hasLabel(metric, label, value) {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return LatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return LatencySnapshot{
		Total: int64(sampleCount),
		P50Ms: histogramQuantile(0.50, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		P90Ms: histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		P95Ms: histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000.0,
	}
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, lp := range metric.Label {
		if lp == nil {
			continue
		}
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	if q >= 1 {
		for i := len(uppers) - 1; i >= 0; i-- {
			if !math.IsInf(uppers[i], 1) {
				return uppers[i]
			}
		}
		return 0
	}

	target := q * float64(total)
	var prevUpper float64
	var prevCum float64

	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}

		// If we can't interpolate, return the bucket upper bound.
		bucketCount := cum - prevCum
		if bucketCount <= 0 || upper == prevUpper {
			return upper
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}

		fraction := (target - prevCum) / bucketCount
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}

		lower := prevUpper
		return lower + fraction*(upper-lower)
	}

	return uppers[len(uppers)-1]
}
