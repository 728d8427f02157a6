// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync/atomic"

	"github.com/xataio/eventpipe/pkg/kafka"
)

type Reader struct {
	FetchMessageFn func(ctx context.Context, i uint64) (*kafka.Message, error)
	CloseFn        func() error
	FetchCalls     uint64
}

func (m *Reader) FetchMessage(ctx context.Context) (*kafka.Message, error) {
	return m.FetchMessageFn(ctx, atomic.AddUint64(&m.FetchCalls, 1))
}

func (m *Reader) Close() error {
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}
