package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/freekieb7/calendar/internal/config"
	"github.com/freekieb7/calendar/internal/telemetry"
)

// New builds the process logger: JSON to stdout in production, text
// otherwise, fanned out to OpenTelemetry when telemetry is running.
func New(cfg config.Config, tel *telemetry.Telemetry) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Log.Level),
		AddSource: cfg.Server.IsProduction(),
	}

	var console slog.Handler
	if cfg.Server.IsProduction() {
		console = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		console = slog.NewTextHandler(os.Stdout, opts)
	}

	handler := console
	if tel != nil && tel.IsEnabled() {
		handler = NewMultiHandler(telemetry.NewOTelHandler(opts), console)
	}

	logger := slog.New(handler).With(
		"service", cfg.Telemetry.ServiceName,
		"version", cfg.Telemetry.ServiceVersion,
		"environment", cfg.Server.Environment,
	)
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps debug, info, warn and error; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MultiHandler sends logs to multiple handlers
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a new multi-handler
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled reports whether any handler handles records at the given level
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle handles the Record by sending it to all handlers
func (h *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler.WithAttrs(attrs))
	}
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler.WithGroup(name))
	}
	return &MultiHandler{handlers: handlers}
}

// SilenceLogger redirects the default logger to w at error level (useful for testing)
func SilenceLogger(w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelError,
	})
	slog.SetDefault(slog.New(handler))
}
