// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xataio/eventpipe/pkg/backoff"
	kafkalib "github.com/xataio/eventpipe/pkg/kafka"
	kafkainstrumentation "github.com/xataio/eventpipe/pkg/kafka/instrumentation"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/otel"
	"github.com/xataio/eventpipe/pkg/transport"
)

// Consumer implements the transport consumer on top of a kafka consumer
// group. Every partition assigned to the group member is read in its own
// goroutine, so events of a partition are delivered in order while
// partitions progress independently. Offsets are committed through the
// consumer group generation that owns the partition.
type Consumer struct {
	group           kafkalib.ConsumerGroup
	newReader       kafkalib.ReaderFactory
	backoffProvider backoff.Provider
	logger          loglib.Logger
}

type Config struct {
	Consumer kafkalib.ConsumerConfig
	// CommitBackoff is the retry policy for offset commits. Defaults to an
	// exponential backoff of 5 retries.
	CommitBackoff backoff.Config
}

type Option func(*options)

type options struct {
	logger          loglib.Logger
	instrumentation *otel.Instrumentation
}

var defaultCommitBackoff = &backoff.Config{
	Exponential: &backoff.ExponentialConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxRetries:      5,
	},
}

// errPartitionUnreachable wraps the errors returned while fetching messages
// from a partition.
type errPartitionUnreachable struct {
	partitionID string
	err         error
}

func (e *errPartitionUnreachable) Error() string {
	return fmt.Sprintf("fetching messages from partition %s: %v", e.partitionID, e.err)
}

func (e *errPartitionUnreachable) Unwrap() error {
	return e.err
}

func WithLogger(l loglib.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithInstrumentation(i *otel.Instrumentation) Option {
	return func(o *options) {
		o.instrumentation = i
	}
}

// NewConsumerFactory returns a factory of kafka consumers. Every consumer
// created joins the consumer group as a new member.
func NewConsumerFactory(config *Config, opts ...Option) transport.ConsumerFactory {
	return func(ctx context.Context) (transport.Consumer, error) {
		return NewConsumer(config, opts...)
	}
}

func NewConsumer(config *Config, opts ...Option) (*Consumer, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := loglib.NewLogger(o.logger).WithFields(loglib.Fields{
		loglib.ModuleField: "kafka_consumer",
	})

	group, err := kafkalib.NewConsumerGroup(config.Consumer, logger)
	if err != nil {
		return nil, err
	}

	newReader, err := kafkalib.NewReaderFactory(config.Consumer, logger)
	if err != nil {
		group.Close()
		return nil, err
	}

	instrumentedGroup, err := kafkainstrumentation.NewConsumerGroup(group, o.instrumentation)
	if err != nil {
		group.Close()
		return nil, err
	}

	commitBackoff := &config.CommitBackoff
	if !commitBackoff.IsSet() {
		commitBackoff = defaultCommitBackoff
	}

	return &Consumer{
		group:           instrumentedGroup,
		newReader:       kafkainstrumentation.NewReaderFactory(newReader, o.instrumentation),
		backoffProvider: backoff.NewProvider(commitBackoff),
		logger:          logger,
	}, nil
}

// Run joins the consumer group generations until the context is canceled,
// the group is closed or a partition faults.
func (c *Consumer) Run(ctx context.Context, handler transport.Handler) error {
	for {
		gen, err := c.group.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, kafkalib.ErrGroupClosed) {
				return nil
			}
			return fmt.Errorf("joining consumer group: %w", err)
		}

		if err := c.runGeneration(ctx, gen, handler); err != nil {
			return err
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

func (c *Consumer) runGeneration(ctx context.Context, gen kafkalib.Generation, handler transport.Handler) error {
	assignments := gen.Assignments()
	total := 0
	for _, partitions := range assignments {
		total += len(partitions)
	}

	c.logger.Info("consumer group generation joined", loglib.Fields{
		"generation_id": gen.ID(),
		"member_id":     gen.MemberID(),
		"partitions":    total,
	})

	if total == 0 {
		done := make(chan struct{})
		gen.Start(func(genCtx context.Context) {
			defer close(done)
			select {
			case <-genCtx.Done():
			case <-ctx.Done():
			}
		})
		<-done
		return nil
	}

	runCtx, cancelRun := context.WithCancelCause(ctx)
	defer cancelRun(nil)

	// The generation ends as soon as any of its functions returns. Partition
	// workers wait for each other to be closed before returning so that
	// shutdown commits can still go through the generation.
	closed := &sync.WaitGroup{}
	closed.Add(total)
	finished := &sync.WaitGroup{}
	finished.Add(total)
	for topic, partitions := range assignments {
		for _, assignment := range partitions {
			worker := &partitionWorker{
				consumer:    c,
				gen:         gen,
				handler:     handler,
				topic:       topic,
				assignment:  assignment,
				partitionID: kafkalib.PartitionID(topic, assignment.Partition),
			}
			gen.Start(func(genCtx context.Context) {
				defer finished.Done()
				worker.run(ctx, runCtx, genCtx, cancelRun)
				closed.Done()
				closed.Wait()
			})
		}
	}
	finished.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return context.Cause(runCtx)
}

// commit commits the offset of the event on input for the generation. The
// committed offset is the next one to be consumed.
func (c *Consumer) commit(ctx context.Context, gen kafkalib.Generation, topic string, partition int, offset int64) error {
	fields := loglib.Fields{
		loglib.PartitionIDField: kafkalib.PartitionID(topic, partition),
		loglib.OffsetField:      offset,
	}
	offsets := map[string]map[int]int64{
		topic: {partition: offset + 1},
	}

	bo := c.backoffProvider(ctx)
	err := bo.RetryNotify(
		func() error {
			return gen.CommitOffsets(offsets)
		},
		func(err error, d time.Duration) {
			c.logger.Warn(err, fmt.Sprintf("failed to commit offset, retrying in %v", d), fields)
		})
	if err != nil {
		return err
	}

	c.logger.Debug("offset committed", fields)
	return nil
}

type partitionWorker struct {
	consumer    *Consumer
	gen         kafkalib.Generation
	handler     transport.Handler
	topic       string
	assignment  kafkalib.PartitionAssignment
	partitionID string
}

// run consumes the partition until the generation ends, the consumer is
// stopped or a sibling partition faults, and then notifies the partition
// closing with the matching reason.
func (w *partitionWorker) run(ctx, runCtx, genCtx context.Context, cancelRun context.CancelCauseFunc) {
	partCtx, partCancel := context.WithCancel(genCtx)
	defer partCancel()
	stop := context.AfterFunc(runCtx, partCancel)
	defer stop()

	err := w.consume(partCtx)
	if err != nil {
		cancelRun(err)
	}

	reason := w.closeReason(ctx, runCtx, err)
	logger := w.consumer.logger.WithFields(loglib.Fields{
		loglib.PartitionIDField: w.partitionID,
		"reason":                reason.String(),
	})
	if err != nil {
		logger.Error(err, "partition consumption stopped")
	}

	if err := w.handler.OnPartitionClosing(context.WithoutCancel(ctx), w.partitionID, reason); err != nil {
		logger.Error(err, "closing partition")
	}
}

func (w *partitionWorker) consume(ctx context.Context) error {
	if err := w.handler.OnPartitionInitializing(ctx, w.partitionID); err != nil {
		return fmt.Errorf("initializing partition %s: %w", w.partitionID, err)
	}

	reader, err := w.consumer.newReader(w.topic, w.assignment.Partition, w.assignment.Offset)
	if err != nil {
		return fmt.Errorf("creating reader for partition %s: %w", w.partitionID, err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			w.consumer.logger.Error(err, "closing partition reader", loglib.Fields{loglib.PartitionIDField: w.partitionID})
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &errPartitionUnreachable{partitionID: w.partitionID, err: err}
		}

		event := w.newEvent(msg)
		w.consumer.logger.Trace("event received", loglib.Fields{
			loglib.PartitionIDField: w.partitionID,
			loglib.OffsetField:      event.Offset,
		})

		if err := w.handler.OnEvent(ctx, event); err != nil {
			if errors.Is(err, transport.ErrStopping) {
				<-ctx.Done()
				return nil
			}
			return fmt.Errorf("handling event %s: %w", event, err)
		}
	}
}

func (w *partitionWorker) closeReason(ctx, runCtx context.Context, err error) transport.CloseReason {
	var unreachableErr *errPartitionUnreachable
	switch {
	case ctx.Err() != nil:
		return transport.CloseReasonShutdown
	case errors.As(err, &unreachableErr):
		return transport.CloseReasonUnreachable
	case err != nil, runCtx.Err() != nil:
		return transport.CloseReasonFaulted
	default:
		return transport.CloseReasonOwnershipLost
	}
}

func (w *partitionWorker) newEvent(msg *kafkalib.Message) *transport.Event {
	var headers map[string][]byte
	if len(msg.Headers) > 0 {
		headers = make(map[string][]byte, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = h.Value
		}
	}

	offset := msg.Offset
	return &transport.Event{
		PartitionID: w.partitionID,
		Offset:      offset,
		Key:         msg.Key,
		Value:       msg.Value,
		Headers:     headers,
		Time:        msg.Time,
		Committer: func(ctx context.Context) error {
			return w.consumer.commit(ctx, w.gen, w.topic, w.assignment.Partition, offset)
		},
	}
}
