// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"fmt"

	"github.com/xataio/eventpipe/internal/json"
)

// DeserializeFilter decodes the event payload into the context message.
type DeserializeFilter struct {
	unmarshaler json.Unmarshaler
	newMessage  func() any
}

type DeserializeOption func(*DeserializeFilter)

// NewDeserializeFilter returns a filter that decodes JSON payloads into a
// map[string]any unless a different message type is configured.
func NewDeserializeFilter(opts ...DeserializeOption) *DeserializeFilter {
	f := &DeserializeFilter{
		unmarshaler: json.Unmarshal,
		newMessage:  func() any { return &map[string]any{} },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithMessageType sets the constructor for the messages the payload is
// decoded into. It must return a pointer.
func WithMessageType(newMessage func() any) DeserializeOption {
	return func(f *DeserializeFilter) {
		f.newMessage = newMessage
	}
}

func WithUnmarshaler(u json.Unmarshaler) DeserializeOption {
	return func(f *DeserializeFilter) {
		f.unmarshaler = u
	}
}

func (f *DeserializeFilter) Send(ctx context.Context, c *Context, next Pipe) error {
	msg := f.newMessage()
	if err := f.unmarshaler(c.Event.Value, msg); err != nil {
		return fmt.Errorf("%w: partition %s offset %d: %w", ErrMalformedPayload, c.Event.PartitionID, c.Event.Offset, err)
	}
	c.Message = msg
	return next.Send(ctx, c)
}
