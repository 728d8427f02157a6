// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/xataio/eventpipe/pkg/transport"
)

type Handler struct {
	OnPartitionInitializingFn func(ctx context.Context, partitionID string) error
	OnPartitionClosingFn      func(ctx context.Context, partitionID string, reason transport.CloseReason) error
	OnEventFn                 func(ctx context.Context, event *transport.Event) error
}

func (m *Handler) OnPartitionInitializing(ctx context.Context, partitionID string) error {
	return m.OnPartitionInitializingFn(ctx, partitionID)
}

func (m *Handler) OnPartitionClosing(ctx context.Context, partitionID string, reason transport.CloseReason) error {
	return m.OnPartitionClosingFn(ctx, partitionID, reason)
}

func (m *Handler) OnEvent(ctx context.Context, event *transport.Event) error {
	return m.OnEventFn(ctx, event)
}
