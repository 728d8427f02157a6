// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/transport"
)

// partitionState keeps track of the processed events of a single partition
// that have not been committed yet.
type partitionState struct {
	id     string
	policy Policy
	clock  clockwork.Clock
	logger loglib.Logger

	// events for a partition are delivered in order, but a completion can
	// race with the partition close during ownership changes.
	mu sync.Mutex
	// pending is set iff processedSinceCheckpoint > 0
	pending                  *transport.Event
	processedSinceCheckpoint uint
	lastCheckpoint           time.Time
	closed                   bool
}

func newPartitionState(id string, policy Policy, clock clockwork.Clock, logger loglib.Logger) *partitionState {
	return &partitionState{
		id:             id,
		policy:         policy,
		clock:          clock,
		logger:         logger,
		lastCheckpoint: clock.Now(),
	}
}

// TryCheckpoint records the event as the pending position of the partition,
// and commits it if any of the policy thresholds has been reached. It returns
// true if a commit was performed. If the commit fails, the state is kept so
// that the next event retries it.
func (s *partitionState) TryCheckpoint(ctx context.Context, event *transport.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, nil
	}

	s.pending = event
	s.processedSinceCheckpoint++

	if s.processedSinceCheckpoint < s.policy.MaxPendingCount && s.clock.Since(s.lastCheckpoint) < s.policy.MaxElapsed {
		return false, nil
	}

	if err := s.pending.Commit(ctx); err != nil {
		return false, err
	}

	s.logger.Debug("partition checkpoint committed", loglib.Fields{
		loglib.PartitionIDField: s.id,
		loglib.OffsetField:      s.pending.Offset,
		"processed":             s.processedSinceCheckpoint,
	})
	s.reset()
	return true, nil
}

// Close releases the partition state. The pending position is only committed
// when the partition is closed because of a shutdown. Cleanup happens
// regardless of the commit result.
func (s *partitionState) Close(ctx context.Context, reason transport.CloseReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	defer func() {
		s.pending = nil
		s.processedSinceCheckpoint = 0
		s.closed = true
		s.logger.Info("partition closed", loglib.Fields{
			loglib.PartitionIDField: s.id,
			"reason":                reason.String(),
		})
	}()

	if !s.pending.HasEvent() || reason != transport.CloseReasonShutdown {
		return nil
	}

	if err := s.pending.Commit(ctx); err != nil {
		s.logger.Error(err, "committing pending checkpoint on partition close", loglib.Fields{
			loglib.PartitionIDField: s.id,
			loglib.OffsetField:      s.pending.Offset,
		})
		return err
	}

	s.logger.Debug("partition checkpoint committed", loglib.Fields{
		loglib.PartitionIDField: s.id,
		loglib.OffsetField:      s.pending.Offset,
		"processed":             s.processedSinceCheckpoint,
	})
	return nil
}

func (s *partitionState) pendingEvent() *transport.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *partitionState) reset() {
	s.pending = nil
	s.processedSinceCheckpoint = 0
	s.lastCheckpoint = s.clock.Now()
}
