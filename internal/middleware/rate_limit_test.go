package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitByIP_AllowsWithinLimit(t *testing.T) {
	limited := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want 200", i+1, w.Code)
		}
	}
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	limited := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 2})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "192.0.2.2:1234"
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)
	}

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "192.0.2.2:1234"
	w := httptest.NewRecorder()
	limited.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want 429", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
}

func TestRateLimitByIP_SeparateIPsTrackedSeparately(t *testing.T) {
	limited := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	first := httptest.NewRequest("POST", "/auth/login", nil)
	first.RemoteAddr = "192.0.2.3:1234"
	w := httptest.NewRecorder()
	limited.ServeHTTP(w, first)
	if w.Code != http.StatusOK {
		t.Fatalf("first IP: got status %d, want 200", w.Code)
	}

	second := httptest.NewRequest("POST", "/auth/login", nil)
	second.RemoteAddr = "192.0.2.4:1234"
	w = httptest.NewRecorder()
	limited.ServeHTTP(w, second)
	if w.Code != http.StatusOK {
		t.Fatalf("second IP: got status %d, want 200", w.Code)
	}
}
