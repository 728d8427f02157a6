// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/xataio/eventpipe/pkg/backoff"
	checkpointmocks "github.com/xataio/eventpipe/pkg/checkpoint/mocks"
	"github.com/xataio/eventpipe/pkg/transport"
)

var errTest = errors.New("oh noes")

// callLog records the ordered notifications received by the test doubles.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

func newRecordingTracker(log *callLog) *checkpointmocks.Tracker {
	return &checkpointmocks.Tracker{
		OnPartitionInitializingFn: func(ctx context.Context, partitionID string) {
			log.add("init:%s", partitionID)
		},
		OnPartitionClosingFn: func(ctx context.Context, partitionID string, reason transport.CloseReason) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.add("close:%s:%s", partitionID, reason)
			return nil
		},
		CompleteFn: func(ctx context.Context, event *transport.Event) error {
			log.add("complete:%s", event)
			return nil
		},
	}
}

func newTestEvent(partitionID string, offset int64) *transport.Event {
	return &transport.Event{
		PartitionID: partitionID,
		Offset:      offset,
		Value:       []byte(`{}`),
	}
}

func testRestartBackoff(maxRetries uint) backoff.Provider {
	return backoff.NewProvider(&backoff.Config{
		Constant: &backoff.ConstantConfig{
			Interval:   time.Millisecond,
			MaxRetries: maxRetries,
		},
	})
}
