// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/xataio/eventpipe/pkg/transport"
)

type Consumer struct {
	RunFn   func(ctx context.Context, handler transport.Handler) error
	CloseFn func() error
}

func (m *Consumer) Run(ctx context.Context, handler transport.Handler) error {
	return m.RunFn(ctx, handler)
}

func (m *Consumer) Close() error {
	if m.CloseFn == nil {
		return nil
	}
	return m.CloseFn()
}
