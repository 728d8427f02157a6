// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v4"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/transport"
)

// Tracker keeps the checkpoint state of the owned partitions up to date with
// the processed events.
type Tracker interface {
	OnPartitionInitializing(ctx context.Context, partitionID string)
	OnPartitionClosing(ctx context.Context, partitionID string, reason transport.CloseReason) error
	Complete(ctx context.Context, event *transport.Event) error
	Partitions() []string
}

// Coordinator tracks the checkpoint state of every owned partition. Partitions
// are independent from each other, so operations on different partitions can
// run concurrently.
type Coordinator struct {
	policy     Policy
	partitions *xsync.Map[string, *partitionState]
	clock      clockwork.Clock
	logger     loglib.Logger
}

type Option func(*Coordinator)

var _ Tracker = (*Coordinator)(nil)

// New returns a coordinator that checkpoints partitions following the policy
// on input.
func New(policy Policy, opts ...Option) (*Coordinator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		policy:     policy,
		partitions: xsync.NewMap[string, *partitionState](),
		clock:      clockwork.NewRealClock(),
		logger:     loglib.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func WithLogger(l loglib.Logger) Option {
	return func(c *Coordinator) {
		c.logger = loglib.NewLogger(l).WithFields(loglib.Fields{
			loglib.ModuleField: "checkpoint_coordinator",
		})
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// OnPartitionInitializing starts tracking the partition on input. If the
// partition is already tracked, its state is left untouched.
func (c *Coordinator) OnPartitionInitializing(_ context.Context, partitionID string) {
	_, loaded := c.partitions.LoadOrCompute(partitionID, func() (*partitionState, bool) {
		return newPartitionState(partitionID, c.policy, c.clock, c.logger), false
	})
	if loaded {
		c.logger.Debug("partition already initialized", loglib.Fields{loglib.PartitionIDField: partitionID})
		return
	}
	c.logger.Info("partition initialized", loglib.Fields{loglib.PartitionIDField: partitionID})
}

// OnPartitionClosing stops tracking the partition on input, committing its
// pending position if the partition is closed because of a shutdown. Closing
// an unknown partition is a noop.
func (c *Coordinator) OnPartitionClosing(ctx context.Context, partitionID string, reason transport.CloseReason) error {
	state, found := c.partitions.LoadAndDelete(partitionID)
	if !found {
		return nil
	}
	return state.Close(ctx, reason)
}

// Complete marks the event on input as processed, committing the partition
// position when the checkpoint policy requires it. Completing an event for a
// partition that is no longer tracked is a noop.
func (c *Coordinator) Complete(ctx context.Context, event *transport.Event) error {
	state, found := c.partitions.Load(event.PartitionID)
	if !found {
		c.logger.Trace("completed event for untracked partition", loglib.Fields{
			loglib.PartitionIDField: event.PartitionID,
			loglib.OffsetField:      event.Offset,
		})
		return nil
	}
	_, err := state.TryCheckpoint(ctx, event)
	return err
}

// Partitions returns a snapshot of the tracked partition ids.
func (c *Coordinator) Partitions() []string {
	ids := make([]string, 0, c.partitions.Size())
	c.partitions.Range(func(id string, _ *partitionState) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}
