// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"fmt"
	"time"

	"github.com/xataio/eventpipe/pkg/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TracingFilter opens a span for every event sent through the pipe and
// records the downstream latency.
type TracingFilter struct {
	tracer        trace.Tracer
	handleLatency metric.Int64Histogram
	payloadBytes  metric.Int64Histogram
}

// NewTracingFilter returns a tracing filter for the instrumentation on input.
// It returns nil when instrumentation is disabled, which the builder ignores.
func NewTracingFilter(instrumentation *otel.Instrumentation) (Filter, error) {
	if !instrumentation.IsEnabled() {
		return nil, nil
	}

	f := &TracingFilter{
		tracer: instrumentation.Tracer,
	}

	if instrumentation.Meter != nil {
		var err error
		f.handleLatency, err = instrumentation.Meter.Int64Histogram("eventpipe.pipe.handle.latency",
			metric.WithUnit("ms"),
			metric.WithDescription("Distribution of time taken to handle an event"))
		if err != nil {
			return nil, fmt.Errorf("error initialising pipe metrics: %w", err)
		}

		f.payloadBytes, err = instrumentation.Meter.Int64Histogram("eventpipe.pipe.payload.bytes",
			metric.WithUnit("bytes"),
			metric.WithDescription("Distribution of event payload bytes"))
		if err != nil {
			return nil, fmt.Errorf("error initialising pipe metrics: %w", err)
		}
	}

	return f, nil
}

func (f *TracingFilter) Send(ctx context.Context, c *Context, next Pipe) (err error) {
	attrs := append(otel.PartitionAttributes(c.Event.PartitionID), attribute.Int64("offset", c.Event.Offset))
	ctx, span := otel.StartSpan(ctx, f.tracer, "pipe.Send", trace.WithAttributes(attrs...))
	defer func() { otel.CloseSpan(span, err) }()

	if f.handleLatency != nil {
		metricAttrs := metric.WithAttributes(otel.PartitionAttributes(c.Event.PartitionID)...)
		f.payloadBytes.Record(ctx, int64(len(c.Event.Value)), metricAttrs)
		startTime := time.Now()
		defer func() {
			f.handleLatency.Record(ctx, time.Since(startTime).Milliseconds(), metricAttrs)
		}()
	}

	return next.Send(ctx, c)
}
