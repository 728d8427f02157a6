// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"fmt"
	"runtime/debug"

	loglib "github.com/xataio/eventpipe/pkg/log"
)

// DispatchFilter is the terminal stage of the pipe. It invokes the user
// handler and, on success, notifies the completer so that the event position
// can be checkpointed. Failed events are not completed.
type DispatchFilter struct {
	handler   Handler
	completer Completer
	logger    loglib.Logger
}

type DispatchOption func(*DispatchFilter)

func NewDispatchFilter(handler Handler, completer Completer, opts ...DispatchOption) *DispatchFilter {
	f := &DispatchFilter{
		handler:   handler,
		completer: completer,
		logger:    loglib.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithDispatchLogger(l loglib.Logger) DispatchOption {
	return func(f *DispatchFilter) {
		f.logger = loglib.NewLogger(l).WithFields(loglib.Fields{
			loglib.ModuleField: "dispatch_filter",
		})
	}
}

func (f *DispatchFilter) Send(ctx context.Context, c *Context) error {
	if err := f.handle(ctx, c); err != nil {
		return err
	}
	return f.completer.Complete(ctx, c.Event)
}

func (f *DispatchFilter) handle(ctx context.Context, c *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			f.logger.Error(err, "[PANIC] recovered from panic in event handler", loglib.Fields{
				loglib.PartitionIDField: c.Event.PartitionID,
				loglib.OffsetField:      c.Event.Offset,
				"stack_trace":           debug.Stack(),
			})
		}
	}()

	return f.handler.Handle(ctx, c)
}
