// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync"

	"github.com/xataio/eventpipe/pkg/kafka"
)

type ConsumerGroup struct {
	NextFn  func(ctx context.Context) (kafka.Generation, error)
	CloseFn func() error
}

func (m *ConsumerGroup) Next(ctx context.Context) (kafka.Generation, error) {
	return m.NextFn(ctx)
}

func (m *ConsumerGroup) Close() error {
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}

// Generation runs the started functions in goroutines, and cancels all of
// them as soon as any returns, the same way a consumer group generation
// does. End can be used to simulate a rebalance.
type Generation struct {
	GenerationID      int32
	PartitionsByTopic map[string][]kafka.PartitionAssignment
	CommitOffsetsFn   func(offsets map[string]map[int]int64) error

	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (m *Generation) init() {
	m.once.Do(func() {
		m.ctx, m.cancel = context.WithCancel(context.Background())
	})
}

func (m *Generation) ID() int32 {
	return m.GenerationID
}

func (m *Generation) MemberID() string {
	return "mock-member"
}

func (m *Generation) Assignments() map[string][]kafka.PartitionAssignment {
	return m.PartitionsByTopic
}

func (m *Generation) Start(fn func(ctx context.Context)) {
	m.init()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.cancel()
		fn(m.ctx)
	}()
}

func (m *Generation) CommitOffsets(offsets map[string]map[int]int64) error {
	if m.CommitOffsetsFn != nil {
		return m.CommitOffsetsFn(offsets)
	}
	return nil
}

// End cancels the generation context.
func (m *Generation) End() {
	m.init()
	m.cancel()
}

// Wait blocks until all the started functions have returned.
func (m *Generation) Wait() {
	m.wg.Wait()
}
