package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPLimitersSeparateClients(t *testing.T) {
	limiters := NewIPLimiters(1, 2)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	limiters.now = func() time.Time { return now }

	if !limiters.Allow("1.1.1.1") || !limiters.Allow("1.1.1.1") {
		t.Fatal("expected burst to be available")
	}
	if limiters.Allow("1.1.1.1") {
		t.Fatal("expected burst to be exhausted")
	}
	if !limiters.Allow("2.2.2.2") {
		t.Fatal("expected a fresh bucket for another ip")
	}

	now = now.Add(time.Second)
	if !limiters.Allow("1.1.1.1") {
		t.Fatal("expected a token after one second")
	}
}

func TestIPLimitersEvictIdleEntries(t *testing.T) {
	limiters := NewIPLimiters(1, 1)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	limiters.now = func() time.Time { return now }

	limiters.Allow("1.1.1.1")
	now = now.Add(limiterIdleTTL + time.Minute)
	limiters.Allow("2.2.2.2")

	if _, ok := limiters.limiters["1.1.1.1"]; ok {
		t.Fatal("expected idle limiter to be evicted")
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	limiters := NewIPLimiters(0.001, 1)
	handler := RateLimit(limiters, nil)(okHandler())

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil)
		req.RemoteAddr = "3.3.3.3:1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}
