// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/xataio/eventpipe/pkg/transport"
)

var errTest = errors.New("oh noes")

const testPartition = "p0"

// commitRecorder keeps track of the committed offsets of a partition.
type commitRecorder struct {
	mu      sync.Mutex
	offsets []int64
	err     error
}

func (r *commitRecorder) newEvent(partitionID string, offset int64) *transport.Event {
	return &transport.Event{
		PartitionID: partitionID,
		Offset:      offset,
		Value:       fmt.Appendf(nil, `{"offset":%d}`, offset),
		Committer: func(ctx context.Context) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.err != nil {
				return r.err
			}
			r.offsets = append(r.offsets, offset)
			return nil
		},
	}
}

func (r *commitRecorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *commitRecorder) committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.offsets)
}

func newTestPolicy(maxPendingCount uint, maxElapsed time.Duration) Policy {
	return Policy{
		MaxPendingCount: maxPendingCount,
		MaxElapsed:      maxElapsed,
	}
}
