// SPDX-License-Identifier: Apache-2.0

package nats

import (
	"context"
	"fmt"
	"strings"

	loglib "github.com/xataio/eventpipe/pkg/log"
	natslib "github.com/xataio/eventpipe/pkg/nats"
	"github.com/xataio/eventpipe/pkg/pipe"
)

// Handler publishes every event it receives to a NATS JetStream stream. Each
// source partition maps to its own subject, and the event position is used
// as the message id so that redeliveries after a restart are discarded by
// the stream within its duplicate window.
type Handler struct {
	writer natslib.MessageWriter
	logger loglib.Logger
}

type Option func(*Handler)

func New(writer natslib.MessageWriter, opts ...Option) *Handler {
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
			loglib.ModuleField: "nats_handler",
		})
	}
}

func (h *Handler) Handle(ctx context.Context, c *pipe.Context) error {
	msg := natslib.Message{
		Subject: partitionSubject(c.Event.PartitionID),
		ID:      c.Event.String(),
		Value:   c.Event.Value,
		Headers: c.Event.Headers,
	}

	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing event %s: %w", c.Event, err)
	}

	h.logger.Trace("event published", loglib.Fields{
		loglib.PartitionIDField: c.Event.PartitionID,
		loglib.OffsetField:      c.Event.Offset,
		"subject":               msg.Subject,
	})
	return nil
}

// Close closes the underlying nats connection.
func (h *Handler) Close() error {
	return h.writer.Close()
}

// partitionSubject turns a "topic/partition" id into a "topic.partition"
// subject suffix.
func partitionSubject(partitionID string) string {
	return strings.ReplaceAll(partitionID, "/", ".")
}
