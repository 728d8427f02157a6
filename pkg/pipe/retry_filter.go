// SPDX-License-Identifier: Apache-2.0

package pipe

import (
	"context"
	"errors"
	"time"

	"github.com/xataio/eventpipe/pkg/backoff"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/transport"
)

// RetryFilter retries the downstream invocation following the configured
// backoff policy. Malformed payloads, panics and checkpoint commit errors are
// not retried.
type RetryFilter struct {
	backoffProvider backoff.Provider
	logger          loglib.Logger
}

func NewRetryFilter(provider backoff.Provider, logger loglib.Logger) *RetryFilter {
	return &RetryFilter{
		backoffProvider: provider,
		logger: loglib.NewLogger(logger).WithFields(loglib.Fields{
			loglib.ModuleField: "retry_filter",
		}),
	}
}

func (f *RetryFilter) Send(ctx context.Context, c *Context, next Pipe) error {
	bo := f.backoffProvider(ctx)
	return bo.RetryNotify(
		func() error {
			err := next.Send(ctx, c)
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		func(err error, d time.Duration) {
			f.logger.Warn(err, "event handling failed, retrying", loglib.Fields{
				loglib.PartitionIDField: c.Event.PartitionID,
				loglib.OffsetField:      c.Event.Offset,
				"backoff":               d,
			})
		})
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrPanic) ||
		transport.IsCommitError(err)
}
