// SPDX-License-Identifier: Apache-2.0

package transport

import "context"

// Consumer is a transport consumer of a partitioned event stream. A consumer
// instance is run once; restarts create a new instance through a
// ConsumerFactory.
type Consumer interface {
	// Run consumes events until the context is canceled or an unrecoverable
	// error happens. Partition ownership changes and events are notified to
	// the handler. Events for a given partition are delivered in order and
	// never concurrently. This call is blocking.
	Run(ctx context.Context, handler Handler) error
	// Close releases the transport connection. Pending commits must have been
	// performed before calling Close.
	Close() error
}

// Handler receives the notifications of a running Consumer. It must be safe
// for concurrent use across partitions.
type Handler interface {
	OnPartitionInitializing(ctx context.Context, partitionID string) error
	OnPartitionClosing(ctx context.Context, partitionID string, reason CloseReason) error
	OnEvent(ctx context.Context, event *Event) error
}

// ConsumerFactory creates a new transport consumer.
type ConsumerFactory func(ctx context.Context) (Consumer, error)
