package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/hoard/internal/core/ports"
)

// LogBridge implements sdktrace.SpanProcessor by writing finished spans to the logger
// at debug level.
type LogBridge struct {
	logger ports.Logger
}

// NewLogBridge returns a new LogBridge.
func NewLogBridge(logger ports.Logger) *LogBridge {
	return &LogBridge{logger: logger}
}

// OnStart does nothing.
func (b *LogBridge) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd logs the span name, duration and attributes.
func (b *LogBridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.logger == nil || !s.SpanContext().IsValid() {
		return
	}

	var line strings.Builder
	fmt.Fprintf(&line, "span %s %s", s.Name(), s.EndTime().Sub(s.StartTime()))
	for _, attr := range s.Attributes() {
		fmt.Fprintf(&line, " %s=%s", attr.Key, attr.Value.Emit())
	}
	if s.Status().Code == codes.Error {
		fmt.Fprintf(&line, " failed: %s", s.Status().Description)
	}
	b.logger.Debug(line.String())
}

// ForceFlush does nothing.
func (b *LogBridge) ForceFlush(context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *LogBridge) Shutdown(context.Context) error {
	return nil
}
