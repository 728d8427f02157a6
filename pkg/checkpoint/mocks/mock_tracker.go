// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/xataio/eventpipe/pkg/transport"
)

type Tracker struct {
	OnPartitionInitializingFn func(ctx context.Context, partitionID string)
	OnPartitionClosingFn      func(ctx context.Context, partitionID string, reason transport.CloseReason) error
	CompleteFn                func(ctx context.Context, event *transport.Event) error
	PartitionsFn              func() []string
}

func (m *Tracker) OnPartitionInitializing(ctx context.Context, partitionID string) {
	if m.OnPartitionInitializingFn != nil {
		m.OnPartitionInitializingFn(ctx, partitionID)
	}
}

func (m *Tracker) OnPartitionClosing(ctx context.Context, partitionID string, reason transport.CloseReason) error {
	return m.OnPartitionClosingFn(ctx, partitionID, reason)
}

func (m *Tracker) Complete(ctx context.Context, event *transport.Event) error {
	return m.CompleteFn(ctx, event)
}

func (m *Tracker) Partitions() []string {
	if m.PartitionsFn == nil {
		return nil
	}
	return m.PartitionsFn()
}
