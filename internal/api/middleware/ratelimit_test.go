// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRateLimit_EnforcesLimit(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	limited := RateLimit(RateLimitConfig{
		RequestLimit: 3,
		WindowSize:   time.Minute,
	})(handler)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.RemoteAddr = "192.0.2.10:4711"
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "192.0.2.10:4711"
	w := httptest.NewRecorder()
	limited.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if !strings.Contains(w.Body.String(), "rate_limited") {
		t.Fatalf("expected rate_limited error code, got %s", w.Body.String())
	}
}

func TestRateLimit_KeysByClientIP(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	limited := RateLimit(RateLimitConfig{
		RequestLimit: 1,
		WindowSize:   time.Minute,
	})(handler)

	first := httptest.NewRequest(http.MethodGet, "/status", nil)
	first.RemoteAddr = "192.0.2.10:1000"
	w := httptest.NewRecorder()
	limited.ServeHTTP(w, first)
	if w.Code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", w.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/status", nil)
	second.RemoteAddr = "192.0.2.99:1000"
	w = httptest.NewRecorder()
	limited.ServeHTTP(w, second)
	if w.Code != http.StatusOK {
		t.Fatalf("different client: expected 200, got %d", w.Code)
	}
}
