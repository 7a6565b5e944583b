package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCors(t *testing.T) {
	handler := Cors(okHandler)

	// Test regular request
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected Access-Control-Allow-Origin header")
	}

	// Test OPTIONS preflight
	req = httptest.NewRequest("OPTIONS", "/test", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected Access-Control-Allow-Methods header on OPTIONS")
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(okHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	headers := []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"X-XSS-Protection",
		"Referrer-Policy",
		"Permissions-Policy",
	}

	for _, h := range headers {
		if w.Header().Get(h) == "" {
			t.Errorf("expected %s header to be set", h)
		}
	}
}

func TestRecover(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	// Should not panic
	handler.ServeHTTP(w, req)

	resp := decode(t, w)
	if resp["success"] != false || resp["message"] != "Internal server error" {
		t.Errorf("expected failure envelope, got %v", resp)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	if seen == "" || w.Header().Get(HeaderXRequestID) != seen {
		t.Errorf("expected generated id in context and header, got %q / %q", seen, w.Header().Get(HeaderXRequestID))
	}

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if seen != "abc-123" {
		t.Errorf("expected incoming id to be kept, got %q", seen)
	}
}

func TestLogging_RecordsStatus(t *testing.T) {
	var rec *statusRecorder
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec = w.(*statusRecorder)
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	if w.Code != http.StatusTeapot || rec.status != http.StatusTeapot {
		t.Errorf("expected 418 recorded, got %d / %d", w.Code, rec.status)
	}
	if rec.Unwrap() != w {
		t.Error("expected Unwrap to return the underlying writer")
	}
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(3)
	handler := rl.Middleware(okHandler)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/files", nil)
		req.RemoteAddr = "192.168.99.99:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.Len() != 0 {
			t.Fatalf("request %d: expected to reach the handler, got %d %q", i, w.Code, w.Body.String())
		}
	}

	req := httptest.NewRequest("GET", "/files", nil)
	req.RemoteAddr = "192.168.99.99:12345"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	resp := decode(t, w)
	if resp["success"] != false || resp["message"] != "Too many requests" {
		t.Errorf("expected rate limit envelope, got %v", resp)
	}

	// Another client has its own budget.
	req = httptest.NewRequest("GET", "/files", nil)
	req.RemoteAddr = "192.168.99.100:12345"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Body.Len() != 0 {
		t.Errorf("expected another IP to reach the handler, got %q", w.Body.String())
	}

	// Health checks are exempt.
	req = httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "192.168.99.99:12345"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Body.Len() != 0 {
		t.Errorf("expected /health to be exempt, got %q", w.Body.String())
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(10)
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")

	rl.evictIdle(time.Now())
	if rl.size() != 2 {
		t.Errorf("expected recent visitors to stay, got %d", rl.size())
	}

	rl.evictIdle(time.Now().Add(time.Hour))
	if rl.size() != 0 {
		t.Errorf("expected idle visitors to be evicted, got %d", rl.size())
	}
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		remote, xff, xri string
		expected         string
	}{
		{"10.0.0.9:5555", "", "", "10.0.0.9"},
		{"10.0.0.9:5555", "203.0.113.7, 10.0.0.1", "", "203.0.113.7"},
		{"10.0.0.9:5555", "", "198.51.100.4", "198.51.100.4"},
		{"pipe", "", "", "pipe"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if tt.xri != "" {
			req.Header.Set("X-Real-IP", tt.xri)
		}
		if got := getIP(req); got != tt.expected {
			t.Errorf("getIP(%+v) = %q, want %q", tt, got, tt.expected)
		}
	}
}
