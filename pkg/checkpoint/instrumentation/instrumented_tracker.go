// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"
	"fmt"
	"time"

	"github.com/xataio/eventpipe/pkg/checkpoint"
	"github.com/xataio/eventpipe/pkg/otel"
	"github.com/xataio/eventpipe/pkg/transport"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracker wraps a checkpoint tracker, recording metrics and spans for the
// partition checkpoints.
type Tracker struct {
	inner   checkpoint.Tracker
	meter   metric.Meter
	tracer  trace.Tracer
	metrics *trackerMetrics
}

type trackerMetrics struct {
	commits         metric.Int64Counter
	commitFailures  metric.Int64Counter
	commitLatency   metric.Int64Histogram
	ownedPartitions metric.Int64ObservableGauge
	closes          metric.Int64Counter
}

func NewTracker(inner checkpoint.Tracker, instrumentation *otel.Instrumentation) (checkpoint.Tracker, error) {
	if instrumentation == nil {
		return inner, nil
	}

	i := &Tracker{
		inner:   inner,
		meter:   instrumentation.Meter,
		tracer:  instrumentation.Tracer,
		metrics: &trackerMetrics{},
	}

	if err := i.initMetrics(); err != nil {
		return nil, fmt.Errorf("error initialising checkpoint metrics: %w", err)
	}

	return i, nil
}

func (i *Tracker) initMetrics() error {
	if i.meter == nil {
		return nil
	}

	var err error
	i.metrics.commits, err = i.meter.Int64Counter("eventpipe.checkpoint.commits",
		metric.WithUnit("commits"),
		metric.WithDescription("Number of partition checkpoints committed"))
	if err != nil {
		return err
	}

	i.metrics.commitFailures, err = i.meter.Int64Counter("eventpipe.checkpoint.commit.failures",
		metric.WithUnit("commits"),
		metric.WithDescription("Number of partition checkpoints that failed to commit"))
	if err != nil {
		return err
	}

	i.metrics.commitLatency, err = i.meter.Int64Histogram("eventpipe.checkpoint.commit.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Distribution of time taken to commit a partition checkpoint"))
	if err != nil {
		return err
	}

	i.metrics.closes, err = i.meter.Int64Counter("eventpipe.checkpoint.partition.closes",
		metric.WithUnit("partitions"),
		metric.WithDescription("Number of closed partitions by close reason"))
	if err != nil {
		return err
	}

	i.metrics.ownedPartitions, err = i.meter.Int64ObservableGauge("eventpipe.checkpoint.partitions",
		metric.WithUnit("partitions"),
		metric.WithDescription("Number of partitions currently tracked"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			o.Observe(int64(len(i.inner.Partitions())))
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

func (i *Tracker) OnPartitionInitializing(ctx context.Context, partitionID string) {
	i.inner.OnPartitionInitializing(ctx, partitionID)
}

func (i *Tracker) OnPartitionClosing(ctx context.Context, partitionID string, reason transport.CloseReason) (err error) {
	ctx, span := otel.StartSpan(ctx, i.tracer, "checkpoint.OnPartitionClosing",
		trace.WithAttributes(otel.PartitionAttributes(partitionID)...))
	defer func() { otel.CloseSpan(span, err) }()

	if i.meter != nil {
		i.metrics.closes.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason.String())))
	}

	return i.inner.OnPartitionClosing(ctx, partitionID, reason)
}

// Complete wraps the event committer so that every checkpoint performed for
// the event, either on completion or on partition close, is recorded.
func (i *Tracker) Complete(ctx context.Context, event *transport.Event) error {
	if event.HasEvent() {
		instrumented := *event
		instrumented.Committer = i.instrumentCommit(event.PartitionID, event.Committer)
		event = &instrumented
	}
	return i.inner.Complete(ctx, event)
}

func (i *Tracker) Partitions() []string {
	return i.inner.Partitions()
}

func (i *Tracker) instrumentCommit(partitionID string, commit transport.CommitFunc) transport.CommitFunc {
	return func(ctx context.Context) (err error) {
		ctx, span := otel.StartSpan(ctx, i.tracer, "checkpoint.Commit",
			trace.WithAttributes(otel.PartitionAttributes(partitionID)...))
		defer func() { otel.CloseSpan(span, err) }()

		if i.meter == nil {
			return commit(ctx)
		}

		startTime := time.Now()
		err = commit(ctx)
		attrs := metric.WithAttributes(otel.PartitionAttributes(partitionID)...)
		i.metrics.commitLatency.Record(ctx, time.Since(startTime).Milliseconds(), attrs)
		if err != nil {
			i.metrics.commitFailures.Add(ctx, 1, attrs)
			return err
		}
		i.metrics.commits.Add(ctx, 1, attrs)
		return nil
	}
}
