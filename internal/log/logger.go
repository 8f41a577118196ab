// Package log is a thin layer over log/slog that stamps every record with
// the component that emitted it.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger bound to a component. The component attribute is
// applied on top of the attributes collected through With, so switching
// components never duplicates it.
type Logger struct {
	*slog.Logger
	base      slog.Handler
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	// Output is used with a text handler when Handler is nil.
	Output  io.Writer
	Handler slog.Handler
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp, Output: os.Stdout}
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func New(cfg Config) *Logger {
	h := cfg.Handler
	if h == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	}
	if cfg.Component == "" {
		cfg.Component = ComponentApp
	}
	return bind(h, cfg.Component)
}

func bind(base slog.Handler, component string) *Logger {
	stamped := base.WithAttrs([]slog.Attr{slog.String(FieldComponent, component)})
	return &Logger{Logger: slog.New(stamped), base: base, component: component}
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return bind(slog.New(l.base).With(args...).Handler(), l.component)
}

// WithComponent returns a logger for another component sharing l's attributes.
func (l *Logger) WithComponent(component string) *Logger {
	return bind(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
