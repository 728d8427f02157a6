// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"fmt"

	kafkalib "github.com/xataio/eventpipe/pkg/kafka"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/pipe"
)

// Handler forwards every event it receives to a kafka topic, keeping the
// event key, payload and headers. Since the writer balances messages by key,
// events with the same key keep their relative order.
type Handler struct {
	writer kafkalib.MessageWriter
	logger loglib.Logger
}

type Option func(*Handler)

func New(writer kafkalib.MessageWriter, opts ...Option) *Handler {
	h := &Handler{
		writer: writer,
		logger: loglib.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func WithLogger(l loglib.Logger) Option {
	return func(h *Handler) {
		h.logger = loglib.NewLogger(l).WithFields(loglib.Fields{
			loglib.ModuleField: "kafka_handler",
		})
	}
}

func (h *Handler) Handle(ctx context.Context, c *pipe.Context) error {
	msg := kafkalib.Message{
		Key:   c.Event.Key,
		Value: c.Event.Value,
	}
	for k, v := range c.Event.Headers {
		msg.Headers = append(msg.Headers, kafkalib.Header{Key: k, Value: v})
	}

	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("forwarding event %s: %w", c.Event, err)
	}

	h.logger.Trace("event forwarded", loglib.Fields{
		loglib.PartitionIDField: c.Event.PartitionID,
		loglib.OffsetField:      c.Event.Offset,
	})
	return nil
}

// Close closes the underlying writer, flushing any pending messages.
func (h *Handler) Close() error {
	return h.writer.Close()
}
