package logger

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// Init installs a JSON slog handler as the process default and returns it.
// The service name is attached to every record so worker and gateway logs
// can be told apart on a shared sink.
func Init(service string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts)).With(
		slog.String("service", service),
	)
	slog.SetDefault(logger)
	return logger
}

// From returns the default logger enriched with the trace/span ids of the
// current context, when a span is active.
func From(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}

	return logger
}
