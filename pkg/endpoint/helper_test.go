// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/xataio/eventpipe/pkg/transport"
	"golang.org/x/sync/errgroup"
)

var errTest = errors.New("oh noes")

// commitLog records the committed offsets per partition.
type commitLog struct {
	mu      sync.Mutex
	offsets map[string][]int64
}

func newCommitLog() *commitLog {
	return &commitLog{offsets: map[string][]int64{}}
}

func (l *commitLog) commit(partitionID string, offset int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offsets[partitionID] = append(l.offsets[partitionID], offset)
}

func (l *commitLog) get() map[string][]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.offsets)
}

// memoryConsumer delivers a fixed set of events per partition, one goroutine
// per partition, and then waits until the context is canceled.
type memoryConsumer struct {
	events  map[string][]int64
	commits *commitLog
}

func newMemoryConsumerFactory(events map[string][]int64, commits *commitLog) transport.ConsumerFactory {
	return func(ctx context.Context) (transport.Consumer, error) {
		return &memoryConsumer{events: events, commits: commits}, nil
	}
}

func (c *memoryConsumer) Run(ctx context.Context, handler transport.Handler) error {
	eg, egCtx := errgroup.WithContext(ctx)
	for _, partitionID := range slices.Sorted(maps.Keys(c.events)) {
		eg.Go(func() error {
			return c.runPartition(egCtx, ctx, partitionID, handler)
		})
	}
	return eg.Wait()
}

func (c *memoryConsumer) runPartition(ctx, parentCtx context.Context, partitionID string, handler transport.Handler) error {
	if err := handler.OnPartitionInitializing(ctx, partitionID); err != nil {
		return err
	}

	for _, offset := range c.events[partitionID] {
		event := &transport.Event{
			PartitionID: partitionID,
			Offset:      offset,
			Value:       fmt.Appendf(nil, `{"offset":%d}`, offset),
			Committer: func(ctx context.Context) error {
				c.commits.commit(partitionID, offset)
				return nil
			},
		}
		if err := handler.OnEvent(ctx, event); err != nil {
			if errors.Is(err, transport.ErrStopping) {
				break
			}
			return errors.Join(err, handler.OnPartitionClosing(ctx, partitionID, transport.CloseReasonFaulted))
		}
	}

	<-ctx.Done()
	reason := transport.CloseReasonOwnershipLost
	if parentCtx.Err() != nil {
		reason = transport.CloseReasonShutdown
	}
	return handler.OnPartitionClosing(ctx, partitionID, reason)
}

func (c *memoryConsumer) Close() error {
	return nil
}

func offsets(from, to int64) []int64 {
	o := []int64{}
	for i := from; i <= to; i++ {
		o = append(o, i)
	}
	return o
}
