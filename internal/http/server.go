// Package http serves the rides dashboard: the HTML page, its JSON API,
// server-rendered PNG charts and the operational endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ridesdash/internal/cache"
	"ridesdash/internal/core"
	applog "ridesdash/internal/log"
	"ridesdash/internal/metrics"
	"ridesdash/internal/middleware/ratelimit"
	"ridesdash/internal/middleware/security"
	"ridesdash/internal/middleware/trace"
	"ridesdash/internal/records"
	appweb "ridesdash/web"
)

const (
	// DefaultLoadTimeout bounds every snapshot load made for a request.
	DefaultLoadTimeout = 7 * time.Second

	DefaultChartCacheTTL = 10 * time.Minute
)

// ImportSource reports the newest known dataset import.
type ImportSource interface {
	LastImport() (core.Import, bool)
}

// Dependencies are everything the server needs besides its address.
type Dependencies struct {
	Loader  records.Loader
	Imports ImportSource // optional
	Backend string

	Logger  *applog.Logger
	Metrics *metrics.Metrics // optional

	LoadTimeout        time.Duration
	RateLimitPerMinute int

	// ChartCacheSize is the number of rendered PNGs kept; 0 disables caching.
	ChartCacheSize int
	ChartCacheTTL  time.Duration
}

type Server struct {
	http.Server
	templates *template.Template
	loader    records.Loader
	imports   ImportSource
	backend   string

	logger      *applog.Logger
	log         *applog.StructuredLogger
	metrics     *metrics.Metrics
	loadTimeout time.Duration

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	started     time.Time

	chartCache *cache.LRUCache[[]byte] // nil when disabled
	janitor    *cache.Janitor

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	loadTimeout := deps.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}

	s := &Server{
		loader:      deps.Loader,
		imports:     deps.Imports,
		backend:     deps.Backend,
		logger:      logger,
		log:         applog.NewStructuredLogger(logger),
		metrics:     deps.Metrics,
		loadTimeout: loadTimeout,
		detector:    security.NewDetector(),
		started:     time.Now(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
			Metrics:           deps.Metrics,
		}),
	}

	if deps.ChartCacheSize > 0 {
		ttl := deps.ChartCacheTTL
		if ttl <= 0 {
			ttl = DefaultChartCacheTTL
		}
		s.chartCache = cache.NewLRUCache[[]byte](deps.ChartCacheSize, ttl)
		s.janitor = cache.NewJanitor(ttl, logger, s.chartCache)
		s.janitor.Start(context.Background())
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /api/rides", security.NoStore(http.HandlerFunc(s.handleRides)))
	mux.Handle("GET /api/dashboard", security.NoStore(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("GET /charts/{file}", security.NoStore(http.HandlerFunc(s.handleChart)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// middleware wraps mux, outermost first: tracing, security headers, probe
// detection, then rate limiting for everything except operational routes.
func (s *Server) middleware(mux http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	})(mux)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			mux.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})

	var handler http.Handler = h
	handler = s.detector.Middleware(s.logger, s.metrics)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.metrics).Middleware(handler)
	return handler
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.janitor != nil {
			s.janitor.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// loadSnapshot loads the dataset for one request under the load timeout.
func (s *Server) loadSnapshot(ctx context.Context) (core.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()
	return s.loader.Load(ctx)
}
