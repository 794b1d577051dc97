package ops

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/agendero/agendero/internal/observability/metrics"
	"github.com/agendero/agendero/pkg/logging"
)

type stubGatherer struct {
	families []*dto.MetricFamily
	err      error
}

func (s stubGatherer) Gather() ([]*dto.MetricFamily, error) {
	return s.families, s.err
}

var _ prometheus.Gatherer = stubGatherer{}

func getStats(h *StatsHandler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	h.HandleStats(w, req)
	return w
}

func TestHandleStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	av := metrics.NewAvailabilityMetrics(reg)
	bk := metrics.NewBookingMetrics(reg)
	cal := metrics.NewCalendarMetrics(reg)

	av.ObserveCheck("free")
	av.ObserveCheck("free")
	av.ObserveCheck("busy")
	for i := 0; i < 3; i++ {
		av.ObserveFreeBusyQuery("ok")
	}
	av.ObserveFreeBusyQuery("error")
	bk.ObserveBooking("ok")
	bk.ObserveBooking("ok")
	bk.ObserveStaffNotification("ok")
	for i := 0; i < 9; i++ {
		cal.ObserveAPILatency("freebusy.query", 0.2)
	}
	cal.ObserveAPILatency("freebusy.query", 2.0)
	// Insert latency must not leak into the free/busy snapshot.
	cal.ObserveAPILatency("events.insert", 5.0)

	h := NewStatsHandler(reg, logging.New("error"))
	w := getStats(h)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var stats Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.AvailabilityChecks["free"] != 2 || stats.AvailabilityChecks["busy"] != 1 {
		t.Fatalf("unexpected availability checks %+v", stats.AvailabilityChecks)
	}
	if stats.FreeBusyQueries["ok"] != 3 || stats.FreeBusyQueries["error"] != 1 {
		t.Fatalf("unexpected freebusy queries %+v", stats.FreeBusyQueries)
	}
	if stats.Bookings["ok"] != 2 {
		t.Fatalf("unexpected bookings %+v", stats.Bookings)
	}
	if stats.StaffNotifications["ok"] != 1 {
		t.Fatalf("unexpected notifications %+v", stats.StaffNotifications)
	}

	if stats.FreeBusyLatency.Total != 10 {
		t.Fatalf("expected 10 latency samples, got %d", stats.FreeBusyLatency.Total)
	}
	// 9 samples land in the (0.1, 0.25] default bucket, the outlier in
	// (1, 2.5]; interpolation puts p95 at 1.75s.
	if stats.FreeBusyLatency.P95Ms < 1749 || stats.FreeBusyLatency.P95Ms > 1751 {
		t.Fatalf("p95_ms = %f, want ~1750", stats.FreeBusyLatency.P95Ms)
	}
	if stats.FreeBusyLatency.P50Ms <= 0 || stats.FreeBusyLatency.P50Ms > 250 {
		t.Fatalf("p50_ms = %f, want within (0, 250]", stats.FreeBusyLatency.P50Ms)
	}
}

func TestHandleStatsEmptyRegistry(t *testing.T) {
	h := NewStatsHandler(prometheus.NewRegistry(), logging.New("error"))
	w := getStats(h)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats.AvailabilityChecks) != 0 || stats.FreeBusyLatency.Total != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
}

func TestHandleStatsGatherError(t *testing.T) {
	h := NewStatsHandler(stubGatherer{err: errors.New("boom")}, logging.New("error"))
	w := getStats(h)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "stats_failed") {
		t.Fatalf("expected stats_failed, got %s", w.Body.String())
	}
}
