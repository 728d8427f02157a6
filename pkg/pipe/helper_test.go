// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"errors"

	"github.com/xataio/eventpipe/pkg/transport"
)

var errTest = errors.New("oh noes")

func newTestContext(partitionID string, offset int64, value string) *Context {
	return &Context{
		Event: &transport.Event{
			PartitionID: partitionID,
			Offset:      offset,
			Value:       []byte(value),
		},
	}
}

// recordingFilter appends its name to the shared trace before and after
// calling the next stage.
func recordingFilter(name string, trace *[]string) Filter {
	return FilterFunc(func(ctx context.Context, c *Context, next Pipe) error {
		*trace = append(*trace, name+":in")
		err := next.Send(ctx, c)
		*trace = append(*trace, name+":out")
		return err
	})
}

func noopPipe() Pipe {
	return PipeFunc(func(ctx context.Context, c *Context) error { return nil })
}
