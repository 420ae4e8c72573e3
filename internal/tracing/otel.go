package tracing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yandex/perforator-flame/pkg/xlog"
)

// Initialize installs a global tracer provider exporting to exporter. The
// returned shutdown flushes pending spans, closes the exporter and may be
// called more than once.
func Initialize(
	ctx context.Context,
	log xlog.Logger,
	exporter sdktrace.SpanExporter,
	serviceName string,
	serviceVersion string,
	opts ...sdktrace.TracerProviderOption,
) (func(context.Context) error, trace.TracerProvider, error) {
	setOpenTelemetryLogger(log)

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		err = fmt.Errorf("failed to build trace resource: %w", err)
		return nil, nil, errors.Join(err, exporter.Shutdown(ctx))
	}

	// Commands are short-lived, so spans go to the exporter as soon as they end.
	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	}, opts...)
	provider := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var (
		once        sync.Once
		shutdownErr error
	)
	shutdown := func(ctx context.Context) error {
		once.Do(func() {
			shutdownErr = provider.Shutdown(ctx)
		})
		return shutdownErr
	}
	return shutdown, provider, nil
}

func setOpenTelemetryLogger(l xlog.Logger) {
	sink := logr.New(&logrZapSink{l: l.WithName("otel").Logger()})
	otel.SetLogger(sink)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		sink.Error(err, "OpenTelemetry failure")
	}))
}
