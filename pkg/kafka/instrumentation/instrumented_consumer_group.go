// SPDX-License-Identifier: Apache-2.0

package instrumentation

import (
	"context"
	"fmt"
	"time"

	"github.com/xataio/eventpipe/pkg/kafka"
	"github.com/xataio/eventpipe/pkg/otel"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ConsumerGroup instruments the generations of the wrapped consumer group,
// recording the offset commits and the group rebalances.
type ConsumerGroup struct {
	inner   kafka.ConsumerGroup
	meter   metric.Meter
	tracer  trace.Tracer
	metrics *groupMetrics
}

type groupMetrics struct {
	generations   metric.Int64Counter
	assignments   metric.Int64Histogram
	commitLatency metric.Int64Histogram
	commitErrors  metric.Int64Counter
}

type generation struct {
	kafka.Generation
	group *ConsumerGroup
}

func NewConsumerGroup(inner kafka.ConsumerGroup, instrumentation *otel.Instrumentation) (kafka.ConsumerGroup, error) {
	if !instrumentation.IsEnabled() {
		return inner, nil
	}

	g := &ConsumerGroup{
		inner:   inner,
		meter:   instrumentation.Meter,
		tracer:  instrumentation.Tracer,
		metrics: &groupMetrics{},
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("error initialising kafka consumer group metrics: %w", err)
	}

	return g, nil
}

func (g *ConsumerGroup) initMetrics() error {
	if g.meter == nil {
		return nil
	}

	var err error
	g.metrics.generations, err = g.meter.Int64Counter("eventpipe.kafka.group.generations",
		metric.WithUnit("generations"),
		metric.WithDescription("Number of consumer group generations joined"))
	if err != nil {
		return err
	}

	g.metrics.assignments, err = g.meter.Int64Histogram("eventpipe.kafka.group.assignments",
		metric.WithUnit("partitions"),
		metric.WithDescription("Distribution of the number of partitions assigned per generation"))
	if err != nil {
		return err
	}

	g.metrics.commitLatency, err = g.meter.Int64Histogram("eventpipe.kafka.group.commit.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Distribution of time taken to commit offsets to kafka"))
	if err != nil {
		return err
	}

	g.metrics.commitErrors, err = g.meter.Int64Counter("eventpipe.kafka.group.commit.errors",
		metric.WithUnit("errors"),
		metric.WithDescription("Number of failed offset commits"))
	if err != nil {
		return err
	}

	return nil
}

func (g *ConsumerGroup) Next(ctx context.Context) (kafka.Generation, error) {
	gen, err := g.inner.Next(ctx)
	if err != nil {
		return nil, err
	}

	if g.meter != nil {
		assigned := 0
		for _, partitions := range gen.Assignments() {
			assigned += len(partitions)
		}
		g.metrics.generations.Add(ctx, 1)
		g.metrics.assignments.Record(ctx, int64(assigned))
	}

	return &generation{Generation: gen, group: g}, nil
}

func (g *ConsumerGroup) Close() error {
	return g.inner.Close()
}

func (g *generation) CommitOffsets(offsets map[string]map[int]int64) (err error) {
	ctx := context.Background()
	_, span := otel.StartSpan(ctx, g.group.tracer, "kafka.CommitOffsets",
		trace.WithAttributes(attribute.Int("generation_id", int(g.ID()))))
	defer func() { otel.CloseSpan(span, err) }()

	if g.group.meter != nil {
		startTime := time.Now()
		defer func() {
			g.group.metrics.commitLatency.Record(ctx, time.Since(startTime).Milliseconds())
			if err != nil {
				g.group.metrics.commitErrors.Add(ctx, 1)
			}
		}()
	}

	return g.Generation.CommitOffsets(offsets)
}
