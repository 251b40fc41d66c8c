// Package logger configures the process-wide slog logger and correlates records with
// the OpenTelemetry span active on the record's context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Setup installs a JSON logger tagged with service as the slog default and returns it.
func Setup(service, level string) *slog.Logger {
	return SetupWriter(os.Stdout, service, level)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, service, level string) *slog.Logger {
	handler := NewHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	log := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(log)
	return log
}

// ParseLevel maps debug/info/warn/error to slog levels, defaulting to info.
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

// Handler decorates another slog.Handler with trace_id and span_id attributes.
type Handler struct {
	next slog.Handler
}

func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}
