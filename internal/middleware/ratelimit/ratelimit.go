// Package ratelimit limits requests per client IP in fixed windows.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"ridesdash/internal/metrics"
)

// Config holds rate limiter configuration
type Config struct {
	// RequestsPerMinute is the budget of one client per window.
	RequestsPerMinute int
	// Window defaults to one minute.
	Window time.Duration
	// CleanupInterval is how often idle clients are forgotten.
	CleanupInterval time.Duration
	// IdleTTL is how long a client may stay silent before it is forgotten.
	IdleTTL time.Duration
	Metrics *metrics.Metrics
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		Window:            time.Minute,
		CleanupInterval:   5 * time.Minute,
		IdleTTL:           10 * time.Minute,
	}
}

// Decision is the outcome for one request.
type Decision struct {
	Allowed bool
	// RetryAfter is the time left in the client's window.
	RetryAfter time.Duration
}

// Limiter is a fixed-window per-client request limiter.
type Limiter struct {
	cfg     Config
	now     func() time.Time
	metrics *metrics.Metrics

	mu      sync.Mutex
	windows map[string]*clientWindow

	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	start    time.Time
	lastSeen time.Time
	count    int
}

// NewLimiter creates a limiter and starts its cleanup goroutine; call Stop
// to release it. Zero config fields take DefaultConfig values.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}

	rl := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		metrics: cfg.Metrics,
		windows: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Decide counts one request from client and reports whether it fits in the
// current window. Windows start at a client's first request, so steady
// traffic cannot extend them.
func (rl *Limiter) Decide(client string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= rl.cfg.Window {
		w = &clientWindow{start: now}
		rl.windows[client] = w
	}
	w.count++
	w.lastSeen = now

	return Decision{
		Allowed:    w.count <= rl.cfg.RequestsPerMinute,
		RetryAfter: rl.cfg.Window - now.Sub(w.start),
	}
}

// Allow is Decide without the wait time.
func (rl *Limiter) Allow(client string) bool {
	return rl.Decide(client).Allowed
}

func (rl *Limiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.forgetIdle()
		case <-rl.stop:
			return
		}
	}
}

// forgetIdle drops clients silent for longer than IdleTTL.
func (rl *Limiter) forgetIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cfg.IdleTTL)
	removed := 0
	for client, w := range rl.windows {
		if w.lastSeen.Before(cutoff) {
			delete(rl.windows, client)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware rejects requests over the limit with Retry-After set to the
// whole seconds left in the window. onLimit writes the rejection body; when
// nil a plain-text 429 is sent.
func (rl *Limiter) Middleware(clientOf func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := rl.Decide(clientOf(r))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			rl.metrics.ObserveRateLimited()
			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(d.RetryAfter)))
			onLimit(w, r)
		})
	}
}

func retrySeconds(d time.Duration) int {
	return max(int((d+time.Second-1)/time.Second), 1)
}
