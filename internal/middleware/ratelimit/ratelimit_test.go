package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ridesdash/internal/metrics"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perMinute int, m *metrics.Metrics) (*Limiter, *fakeClock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, Metrics: m})
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 2, nil)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request in the window must be rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("clients are limited independently")
	}

	// Steady traffic does not extend the window.
	clock.t = clock.t.Add(59 * time.Second)
	if rl.Allow("a") {
		t.Fatal("still inside the window")
	}
	clock.t = clock.t.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatal("a new window must reset the counter")
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, 10, nil)
	rl.Allow("a")
	clock.t = clock.t.Add(5 * time.Minute)
	rl.Allow("b")

	clock.t = clock.t.Add(6 * time.Minute)
	if removed := rl.forgetIdle(); removed != 1 {
		t.Fatalf("forgetIdle() = %d, want 1", removed)
	}
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("ActiveClients() = %d, want 1", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	m := metrics.New()
	rl, clock := newTestLimiter(t, 1, m)
	h := rl.Middleware(func(*http.Request) string { return "a" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}

	clock.t = clock.t.Add(15 * time.Second)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("Retry-After = %q, want 45", got)
	}
	if got := testutil.ToFloat64(m.RateLimitedTotal); got != 1 {
		t.Fatalf("rate limited counter = %v", got)
	}
}

func TestLimiter_CustomOnLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, nil)
	h := rl.Middleware(func(*http.Request) string { return "a" }, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.cfg != DefaultConfig() {
		t.Fatalf("defaults not applied: %+v", rl.cfg)
	}
	rl.Stop()
}

func TestLimiter_DecideRetryAfter(t *testing.T) {
	rl, clock := newTestLimiter(t, 1, nil)
	if d := rl.Decide("a"); !d.Allowed || d.RetryAfter != time.Minute {
		t.Fatalf("first decision = %+v", d)
	}
	clock.t = clock.t.Add(59*time.Second + 500*time.Millisecond)
	d := rl.Decide("a")
	if d.Allowed || d.RetryAfter != 500*time.Millisecond {
		t.Fatalf("second decision = %+v", d)
	}
	if got := retrySeconds(d.RetryAfter); got != 1 {
		t.Fatalf("retrySeconds = %d, want 1", got)
	}
}
