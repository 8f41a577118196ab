package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// FromContext returns the request logger, or one over slog's default
// tagged "unknown" when none was stored.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return bind(slog.Default().Handler(), "unknown")
}

// StructuredLogger emits the recurring HTTP and loader events with a fixed
// set of attributes.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger.WithComponent(ComponentHTTP)}
}

func statusLevel(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func requestFields(r *http.Request, requestID, clientIP string) *Fields {
	return NewFields().
		With(FieldMethod, r.Method).
		With(FieldPath, r.URL.Path).
		withNonEmpty(FieldQuery, r.URL.RawQuery).
		withNonEmpty(FieldRequestID, requestID).
		With(FieldClientIP, clientIP)
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, requestID, clientIP string) {
	f := requestFields(r, requestID, clientIP).
		withNonEmpty(FieldUserAgent, r.UserAgent()).
		withNonEmpty(FieldReferer, r.Referer())
	sl.logger.DebugContext(ctx, "HTTP request started", f.Args()...)
}

// LogHTTPEnd logs at info, warn or error depending on the status class.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, requestID string, statusCode int, durationMs int64, clientIP string) {
	f := requestFields(r, requestID, clientIP).
		withNonEmpty(FieldRoute, r.Pattern).
		With(FieldStatusCode, statusCode).
		With(FieldDuration, durationMs).
		With(FieldSuccess, statusCode < 400)
	sl.logger.Log(ctx, statusLevel(statusCode), "HTTP request completed", f.Args()...)
}

func (sl *StructuredLogger) LogSnapshotLoaded(ctx context.Context, backend string, locations, categories, rides int, elapsed time.Duration) {
	f := NewFields().
		WithOperation(OpLoad).
		With(FieldBackend, backend).
		WithSnapshot(locations, categories, rides).
		With(FieldDuration, elapsed.Milliseconds())
	sl.logger.WithComponent(ComponentLoader).DebugContext(ctx, "Dataset loaded", f.Args()...)
}

// LogError logs err under component; fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields *Fields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithOperation(operation).WithError(err)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.Args()...)
}
