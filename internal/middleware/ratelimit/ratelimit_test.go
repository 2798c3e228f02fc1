package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(Config{RequestsPerMinute: 2})
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other client should not be limited")
	}

	now = now.Add(time.Minute)
	if !l.Allow("a") {
		t.Fatal("new window should reset the count")
	}
}

func TestDropIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(Config{RequestsPerMinute: 2})
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(11 * time.Minute)
	l.Allow("b")

	if n := l.dropIdle(); n != 1 {
		t.Fatalf("dropIdle = %d, want 1", n)
	}
	if l.ActiveClients() != 1 {
		t.Fatalf("ActiveClients = %d", l.ActiveClients())
	}
}

func TestMiddlewareOnlyCountsConfiguredMethods(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %d limited", i)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("first POST status = %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("second POST status = %d", rr.Code)
	}
}

func TestMiddlewareSkipsExemptPaths(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1, ExemptPaths: []string{"/hook"}})
	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hook", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("exempt POST %d status = %d", i, rr.Code)
		}
	}
	if l.ActiveClients() != 0 {
		t.Errorf("exempt requests were counted: %d clients", l.ActiveClients())
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/other", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("first counted POST status = %d", rr.Code)
	}
}
