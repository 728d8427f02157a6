// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"
	"fmt"
	"time"

	"github.com/xataio/eventpipe/pkg/kafka"
	"github.com/xataio/eventpipe/pkg/otel"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Reader struct {
	inner       kafka.MessageReader
	partitionID string
	meter       metric.Meter
	tracer      trace.Tracer
	metrics     *readerMetrics
}

type readerMetrics struct {
	msgBytes     metric.Int64Histogram
	fetchLatency metric.Int64Histogram
}

// NewReaderFactory wraps the reader factory on input so that every reader it
// returns is instrumented.
func NewReaderFactory(factory kafka.ReaderFactory, instrumentation *otel.Instrumentation) kafka.ReaderFactory {
	if !instrumentation.IsEnabled() {
		return factory
	}

	return func(topic string, partition int, offset int64) (kafka.MessageReader, error) {
		reader, err := factory(topic, partition, offset)
		if err != nil {
			return nil, err
		}
		return NewReader(reader, kafka.PartitionID(topic, partition), instrumentation)
	}
}

func NewReader(inner kafka.MessageReader, partitionID string, instrumentation *otel.Instrumentation) (kafka.MessageReader, error) {
	if !instrumentation.IsEnabled() {
		return inner, nil
	}

	i := &Reader{
		inner:       inner,
		partitionID: partitionID,
		meter:       instrumentation.Meter,
		tracer:      instrumentation.Tracer,
		metrics:     &readerMetrics{},
	}

	if err := i.initMetrics(); err != nil {
		return nil, fmt.Errorf("error initialising kafka reader metrics: %w", err)
	}

	return i, nil
}

func (i *Reader) initMetrics() error {
	if i.meter == nil {
		return nil
	}

	var err error
	i.metrics.msgBytes, err = i.meter.Int64Histogram("eventpipe.kafka.reader.msg.bytes",
		metric.WithUnit("bytes"),
		metric.WithDescription("Distribution of message bytes read by the kafka partition readers"))
	if err != nil {
		return err
	}

	i.metrics.fetchLatency, err = i.meter.Int64Histogram("eventpipe.kafka.reader.fetch.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Distribution of time taken by the partition readers to fetch messages from kafka"))
	if err != nil {
		return err
	}

	return nil
}

func (i *Reader) FetchMessage(ctx context.Context) (msg *kafka.Message, err error) {
	ctx, span := otel.StartSpan(ctx, i.tracer, "kafka.FetchMessage", trace.WithAttributes(otel.PartitionAttributes(i.partitionID)...))
	defer func() { otel.CloseSpan(span, err) }()

	attrs := metric.WithAttributes(otel.PartitionAttributes(i.partitionID)...)
	if i.meter != nil {
		startTime := time.Now()
		defer func() {
			i.metrics.fetchLatency.Record(ctx, time.Since(startTime).Milliseconds(), attrs)
		}()
	}

	msg, err = i.inner.FetchMessage(ctx)
	if msg != nil && i.meter != nil {
		i.metrics.msgBytes.Record(ctx, int64(msg.Size()), attrs)
	}

	return msg, err
}

func (i *Reader) Close() error {
	return i.inner.Close()
}
