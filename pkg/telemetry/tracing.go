package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// InitTracer initializes the OpenTelemetry tracer provider.
// In local development spans are pretty-printed to stdout; otherwise they go
// to the OTLP collector (e.g. jaeger:4317 in docker-compose) via gRPC.
func InitTracer(serviceName, otlpEndpoint string, localDev bool) (func(context.Context) error, error) {
	ctx := context.Background()

	var exporter sdktrace.SpanExporter
	var err error
	if localDev {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(otlpEndpoint))
	}
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}

// StartDispatchSpan starts the consumer-side span for one queued event,
// linked to the webhook request's trace so the whole pipeline reads as one
// trace even though processing happens after the HTTP response went out.
func StartDispatchSpan(ctx context.Context, remote trace.SpanContext, action, dedupeKey string) (context.Context, trace.Span) {
	if remote.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, remote)
	}

	tracer := otel.Tracer("dispatch-queue")
	return tracer.Start(ctx, "process_event",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("app.action", action),
			attribute.String("app.dedupe_key", dedupeKey),
		),
	)
}
