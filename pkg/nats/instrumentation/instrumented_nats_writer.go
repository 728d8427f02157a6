// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"
	"fmt"
	"time"

	natslib "github.com/xataio/eventpipe/pkg/nats"
	"github.com/xataio/eventpipe/pkg/otel"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Writer struct {
	inner   natslib.MessageWriter
	meter   metric.Meter
	tracer  trace.Tracer
	metrics *writerMetrics
}

type writerMetrics struct {
	msgBytes     metric.Int64Histogram
	writeLatency metric.Int64Histogram
	writeErrors  metric.Int64Counter
}

func NewWriter(inner natslib.MessageWriter, instrumentation *otel.Instrumentation) (natslib.MessageWriter, error) {
	if !instrumentation.IsEnabled() {
		return inner, nil
	}

	i := &Writer{
		inner:   inner,
		meter:   instrumentation.Meter,
		tracer:  instrumentation.Tracer,
		metrics: &writerMetrics{},
	}

	if err := i.initMetrics(); err != nil {
		return nil, fmt.Errorf("error initialising nats writer metrics: %w", err)
	}

	return i, nil
}

func (i *Writer) initMetrics() error {
	if i.meter == nil {
		return nil
	}

	var err error
	i.metrics.msgBytes, err = i.meter.Int64Histogram("eventpipe.nats.writer.msg.bytes",
		metric.WithUnit("bytes"),
		metric.WithDescription("Distribution of message bytes published by the nats jetstream writer"))
	if err != nil {
		return err
	}

	i.metrics.writeLatency, err = i.meter.Int64Histogram("eventpipe.nats.writer.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Distribution of time taken by the writer to publish messages to nats jetstream"))
	if err != nil {
		return err
	}

	i.metrics.writeErrors, err = i.meter.Int64Counter("eventpipe.nats.writer.errors",
		metric.WithUnit("errors"),
		metric.WithDescription("Count of failed nats jetstream publish calls"))
	if err != nil {
		return err
	}

	return nil
}

func (i *Writer) WriteMessages(ctx context.Context, msgs ...natslib.Message) (err error) {
	ctx, span := otel.StartSpan(ctx, i.tracer, "nats.WriteMessages")
	defer func() { otel.CloseSpan(span, err) }()

	if i.meter != nil {
		startTime := time.Now()
		defer func() {
			i.metrics.writeLatency.Record(ctx, time.Since(startTime).Milliseconds())
			if err != nil {
				i.metrics.writeErrors.Add(ctx, 1)
			}
		}()
		for _, msg := range msgs {
			i.metrics.msgBytes.Record(ctx, int64(msg.Size()))
		}
	}

	return i.inner.WriteMessages(ctx, msgs...)
}

func (i *Writer) Close() error {
	return i.inner.Close()
}
