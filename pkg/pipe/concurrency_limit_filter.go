// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"errors"
	"math"

	synclib "github.com/xataio/eventpipe/internal/sync"
	loglib "github.com/xataio/eventpipe/pkg/log"
)

// ConcurrencyLimitFilter bounds the number of simultaneous downstream
// invocations. Invocations over the limit block until a slot is released or
// the context is done.
type ConcurrencyLimitFilter struct {
	sema   synclib.WeightedSemaphore
	logger loglib.Logger
}

var errInvalidConcurrencyLimit = errors.New("concurrency limit must be greater than 0 and fit in an int64")

func NewConcurrencyLimitFilter(limit uint, logger loglib.Logger) (*ConcurrencyLimitFilter, error) {
	if limit == 0 || uint64(limit) > math.MaxInt64 {
		return nil, errInvalidConcurrencyLimit
	}
	return &ConcurrencyLimitFilter{
		sema: synclib.NewWeightedSemaphore(int64(limit)),
		logger: loglib.NewLogger(logger).WithFields(loglib.Fields{
			loglib.ModuleField: "concurrency_limit_filter",
		}),
	}, nil
}

func (f *ConcurrencyLimitFilter) Send(ctx context.Context, c *Context, next Pipe) error {
	if !f.sema.TryAcquire(1) {
		f.logger.Trace("concurrency limit reached, dispatch blocked", loglib.Fields{
			loglib.PartitionIDField: c.Event.PartitionID,
			loglib.OffsetField:      c.Event.Offset,
		})
		if err := f.sema.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	defer f.sema.Release(1)

	return next.Send(ctx, c)
}
