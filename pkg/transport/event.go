// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"time"
)

// Event is a single consumed event, as delivered by a transport for one of its
// owned partitions.
type Event struct {
	// PartitionID is the opaque identifier of the partition the event was read
	// from.
	PartitionID string
	// Offset is the position of the event within its partition.
	Offset  int64
	Key     []byte
	Value   []byte
	Headers map[string][]byte
	Time    time.Time
	// Committer records the event position as the partition checkpoint. It
	// is provided by the transport.
	Committer CommitFunc
}

// CommitFunc commits the position of an event in its partition.
type CommitFunc func(ctx context.Context) error

// HasEvent reports whether the event carries a position that can be
// committed.
func (e *Event) HasEvent() bool {
	return e != nil && e.Committer != nil
}

// Commit checkpoints the event position using the transport committer. Any
// failure is returned as a *CommitError.
func (e *Event) Commit(ctx context.Context) error {
	if !e.HasEvent() {
		return nil
	}
	if err := e.Committer(ctx); err != nil {
		return &CommitError{
			PartitionID: e.PartitionID,
			Offset:      e.Offset,
			Err:         err,
		}
	}
	return nil
}

func (e *Event) String() string {
	return fmt.Sprintf("%s@%d", e.PartitionID, e.Offset)
}

// CloseReason describes why a partition stopped being processed.
type CloseReason int

const (
	// CloseReasonShutdown is a graceful, coordinated stop of the consumer.
	CloseReasonShutdown CloseReason = iota
	// CloseReasonOwnershipLost is used when the partition was reassigned to a
	// different consumer, usually after a rebalance.
	CloseReasonOwnershipLost
	// CloseReasonUnreachable is used when the broker can no longer be reached
	// for the partition.
	CloseReasonUnreachable
	// CloseReasonFaulted is used when processing stopped because of an error
	// in the consumer or in the pipeline.
	CloseReasonFaulted
)

func (r CloseReason) String() string {
	switch r {
	case CloseReasonShutdown:
		return "shutdown"
	case CloseReasonOwnershipLost:
		return "ownership_lost"
	case CloseReasonUnreachable:
		return "unreachable"
	case CloseReasonFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}
