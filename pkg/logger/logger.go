package logger

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Setup configures the global zerolog logger.
func Setup(isLocalDev bool) {
	// Use Unix timestamps for performance and consistency
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if isLocalDev {
		// Pretty printing for local development
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		// Default to JSON output for production
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// EnrichContextWithLogger adds a zerolog logger to the context, tagged with a
// fresh request id and, when a span is active, the trace information.
func EnrichContextWithLogger(ctx context.Context) context.Context {
	lc := log.With().Str("request_id", uuid.NewString())

	span := trace.SpanFromContext(ctx)
	if sCtx := span.SpanContext(); sCtx.HasTraceID() {
		lc = lc.
			Str("trace_id", sCtx.TraceID().String()).
			Str("span_id", sCtx.SpanID().String())
	}

	l := lc.Logger()
	return l.WithContext(ctx)
}
