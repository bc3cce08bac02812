// Package telemetry provides telemetry adapters that do not depend on a backend.
package telemetry

import (
	"context"
	"io"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
)

var (
	_ ports.Telemetry = (*NoOpTelemetry)(nil)
	_ ports.Vertex    = (*NoOpVertex)(nil)
)

// NoOpTelemetry is a no-op implementation of ports.Telemetry.
type NoOpTelemetry struct{}

// NewNoOpTelemetry creates a new NoOpTelemetry.
func NewNoOpTelemetry() *NoOpTelemetry {
	return &NoOpTelemetry{}
}

// Record returns a vertex that discards everything.
func (t *NoOpTelemetry) Record(ctx context.Context, _ string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
	v := &NoOpVertex{}
	return ports.ContextWithVertex(ctx, v), v
}

// Close does nothing.
func (t *NoOpTelemetry) Close() error { return nil }

// NoOpVertex is a no-op implementation of ports.Vertex.
type NoOpVertex struct{}

// Stdout returns io.Discard.
func (v *NoOpVertex) Stdout() io.Writer { return io.Discard }

// Stderr returns io.Discard.
func (v *NoOpVertex) Stderr() io.Writer { return io.Discard }

// Log does nothing.
func (v *NoOpVertex) Log(_ domain.LogLevel, _ string) {}

// Complete does nothing.
func (v *NoOpVertex) Complete(_ error) {}

// Cached does nothing.
func (v *NoOpVertex) Cached() {}
