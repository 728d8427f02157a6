// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"errors"

	"github.com/xataio/eventpipe/pkg/transport"
)

// Context is the per event context that flows through the pipe.
type Context struct {
	Event *transport.Event
	// Message is the deserialized event payload. It is only set when the
	// pipe includes a deserialize filter.
	Message any
}

// Pipe processes an event context.
type Pipe interface {
	Send(ctx context.Context, c *Context) error
}

type PipeFunc func(ctx context.Context, c *Context) error

func (f PipeFunc) Send(ctx context.Context, c *Context) error {
	return f(ctx, c)
}

// Filter is a stage of the pipe. A filter can pass the context to the next
// stage, short-circuit by returning without calling next, or wrap the call to
// next.
type Filter interface {
	Send(ctx context.Context, c *Context, next Pipe) error
}

type FilterFunc func(ctx context.Context, c *Context, next Pipe) error

func (f FilterFunc) Send(ctx context.Context, c *Context, next Pipe) error {
	return f(ctx, c, next)
}

// Handler is the user consumption logic invoked at the end of the pipe.
type Handler interface {
	Handle(ctx context.Context, c *Context) error
}

type HandlerFunc func(ctx context.Context, c *Context) error

func (f HandlerFunc) Handle(ctx context.Context, c *Context) error {
	return f(ctx, c)
}

// Completer is notified of the events that have been successfully handled.
type Completer interface {
	Complete(ctx context.Context, event *transport.Event) error
}

var (
	ErrPanic            = errors.New("panic while handling event")
	ErrMalformedPayload = errors.New("malformed event payload")
)
