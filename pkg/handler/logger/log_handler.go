// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"context"

	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/pipe"
)

// Handler logs every event it receives. It's mostly useful to inspect a
// topic without any side effects.
type Handler struct {
	logger         loglib.Logger
	includePayload bool
}

type Option func(*Handler)

func New(logger loglib.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger: loglib.NewLogger(logger).WithFields(loglib.Fields{
			loglib.ModuleField: "log_handler",
		}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithPayload includes the event payload in the log entry. The deserialized
// message is used when available.
func WithPayload() Option {
	return func(h *Handler) {
		h.includePayload = true
	}
}

func (h *Handler) Handle(_ context.Context, c *pipe.Context) error {
	fields := loglib.Fields{
		loglib.PartitionIDField: c.Event.PartitionID,
		loglib.OffsetField:      c.Event.Offset,
		"key":                   string(c.Event.Key),
		"payload_size":          len(c.Event.Value),
	}
	if h.includePayload {
		if c.Message != nil {
			fields["payload"] = c.Message
		} else {
			fields["payload"] = string(c.Event.Value)
		}
	}

	h.logger.Info("event received", fields)
	return nil
}
