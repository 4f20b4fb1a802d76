package telemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/hoard/internal/core/ports"
)

// InstrumentationName names the hoard tracer.
const InstrumentationName = "go.trai.ch/hoard"

// Telemetry owns the tracer handed to the cache and its provider.
type Telemetry struct {
	Tracer   ports.Tracer
	provider *sdktrace.TracerProvider
}

// New returns OpenTelemetry tracing bridged to logger when enabled, and a no-op tracer otherwise.
func New(enabled bool, logger ports.Logger, processors ...sdktrace.SpanProcessor) *Telemetry {
	if !enabled {
		return &Telemetry{Tracer: NewNoOpTracer()}
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithSpanProcessor(NewLogBridge(logger))}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	provider := sdktrace.NewTracerProvider(opts...)
	return &Telemetry{
		Tracer:   NewOTelTracer(provider, InstrumentationName),
		provider: provider,
	}
}

// Shutdown flushes and stops the provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
