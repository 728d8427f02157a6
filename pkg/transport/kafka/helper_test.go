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
	kafkamocks "github.com/xataio/eventpipe/pkg/kafka/mocks"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/transport"
)

const testTopic = "test-topic"

var errTest = errors.New("oh noes")

type closeCall struct {
	partitionID string
	reason      transport.CloseReason
}

// recordingHandler records the notifications received from the consumer.
type recordingHandler struct {
	mu           sync.Mutex
	initialized  []string
	closed       []closeCall
	events       map[string][]int64
	onEventFn    func(ctx context.Context, event *transport.Event) error
	eventsNotify chan *transport.Event
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		events:       map[string][]int64{},
		eventsNotify: make(chan *transport.Event, 100),
	}
}

func (h *recordingHandler) OnPartitionInitializing(_ context.Context, partitionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initialized = append(h.initialized, partitionID)
	return nil
}

func (h *recordingHandler) OnPartitionClosing(_ context.Context, partitionID string, reason transport.CloseReason) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, closeCall{partitionID: partitionID, reason: reason})
	return nil
}

func (h *recordingHandler) OnEvent(ctx context.Context, event *transport.Event) error {
	if h.onEventFn != nil {
		if err := h.onEventFn(ctx, event); err != nil {
			return err
		}
	}
	h.mu.Lock()
	h.events[event.PartitionID] = append(h.events[event.PartitionID], event.Offset)
	h.mu.Unlock()
	h.eventsNotify <- event
	return nil
}

func (h *recordingHandler) closeReasons() map[string]transport.CloseReason {
	h.mu.Lock()
	defer h.mu.Unlock()
	reasons := make(map[string]transport.CloseReason, len(h.closed))
	for _, c := range h.closed {
		reasons[c.partitionID] = c.reason
	}
	return reasons
}

func (h *recordingHandler) eventOffsets() map[string][]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	offsets := make(map[string][]int64, len(h.events))
	for id, o := range h.events {
		offsets[id] = append([]int64{}, o...)
	}
	return offsets
}

// waitForEvents blocks until n events have been handled.
func (h *recordingHandler) waitForEvents(n int) error {
	for i := 0; i < n; i++ {
		select {
		case <-h.eventsNotify:
		case <-time.After(5 * time.Second):
			return fmt.Errorf("timed out waiting for events, got %d out of %d", i, n)
		}
	}
	return nil
}

// newTestReaderFactory returns readers that serve the number of messages per
// partition on input, starting at the assigned offset, and then block until
// the context is done.
func newTestReaderFactory(messagesPerPartition int, fetchErr map[int]error) kafkalib.ReaderFactory {
	return func(topic string, partition int, offset int64) (kafkalib.MessageReader, error) {
		return &kafkamocks.Reader{
			FetchMessageFn: func(ctx context.Context, i uint64) (*kafkalib.Message, error) {
				if err, found := fetchErr[partition]; found {
					return nil, err
				}
				if i > uint64(messagesPerPartition) {
					<-ctx.Done()
					return nil, ctx.Err()
				}
				return &kafkalib.Message{
					Topic:     topic,
					Partition: partition,
					Offset:    offset + int64(i) - 1,
					Value:     []byte(fmt.Sprintf(`{"n":%d}`, i)),
				}, nil
			},
		}, nil
	}
}

func newTestGeneration(partitions ...int) *kafkamocks.Generation {
	assignments := make([]kafkalib.PartitionAssignment, 0, len(partitions))
	for _, p := range partitions {
		assignments = append(assignments, kafkalib.PartitionAssignment{Partition: p, Offset: 0})
	}
	return &kafkamocks.Generation{
		GenerationID:      1,
		PartitionsByTopic: map[string][]kafkalib.PartitionAssignment{testTopic: assignments},
	}
}

// newTestGroup returns a consumer group that serves the generations on input
// in order and then blocks until the context is done.
func newTestGroup(gens ...kafkalib.Generation) *kafkamocks.ConsumerGroup {
	var mu sync.Mutex
	next := 0
	return &kafkamocks.ConsumerGroup{
		NextFn: func(ctx context.Context) (kafkalib.Generation, error) {
			mu.Lock()
			if next < len(gens) {
				gen := gens[next]
				next++
				mu.Unlock()
				return gen, nil
			}
			mu.Unlock()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

func newTestConsumer(group kafkalib.ConsumerGroup, readerFactory kafkalib.ReaderFactory) *Consumer {
	return &Consumer{
		group:     group,
		newReader: readerFactory,
		backoffProvider: backoff.NewProvider(&backoff.Config{
			Constant: &backoff.ConstantConfig{Interval: time.Millisecond, MaxRetries: 2},
		}),
		logger: loglib.NewNoopLogger(),
	}
}

func partitionID(partition int) string {
	return kafkalib.PartitionID(testTopic, partition)
}
