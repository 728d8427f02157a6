// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"slices"
)

// Builder accumulates filters in order. The first filter added is the first
// one to receive the event context.
type Builder struct {
	filters []Filter
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Use(filters ...Filter) *Builder {
	for _, f := range filters {
		if f != nil {
			b.filters = append(b.filters, f)
		}
	}
	return b
}

// Build composes the filters on top of the terminal pipe on input. The
// returned pipe is not affected by later calls to the builder.
func (b *Builder) Build(terminal Pipe) Pipe {
	filters := slices.Clone(b.filters)
	p := terminal
	for i := len(filters) - 1; i >= 0; i-- {
		p = &filterPipe{
			filter: filters[i],
			next:   p,
		}
	}
	return p
}

type filterPipe struct {
	filter Filter
	next   Pipe
}

func (p *filterPipe) Send(ctx context.Context, c *Context) error {
	return p.filter.Send(ctx, c, p.next)
}
