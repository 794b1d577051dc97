package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRateLimiterBurst(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)

	if !limiter.Allow("1.2.3.4") {
		t.Fatalf("expected first request allowed")
	}
	if !limiter.Allow("1.2.3.4") {
		t.Fatalf("expected second request allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatalf("expected third request rejected")
	}
	// Buckets are per IP.
	if !limiter.Allow("5.6.7.8") {
		t.Fatalf("expected other client unaffected")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mw := RateLimit(0.001, 1)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/availability", nil)
	req.Header.Set("X-Real-Ip", "9.9.9.9")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rate_limited") {
		t.Fatalf("expected rate_limited body, got %s", rec.Body.String())
	}
}

func TestRateLimitSkipsHealthProbes(t *testing.T) {
	mw := RateLimit(0.001, 1)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("probe %d: expected 200, got %d", i, rec.Code)
		}
	}
}
