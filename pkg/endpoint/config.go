// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"errors"
	"time"

	"github.com/xataio/eventpipe/pkg/backoff"
)

type Config struct {
	Receive ReceiveSettings
	// RestartBackoff configures the delay between consumer restarts after a
	// fault. Once the retries are exhausted the endpoint stops with a fatal
	// error.
	RestartBackoff *backoff.Config
	// HandlerRetry enables retries of failed handler invocations before the
	// failure is propagated to the consumer. Disabled by default.
	HandlerRetry *backoff.Config
	// ValidateJSON rejects events whose payload is not valid JSON.
	ValidateJSON bool
	// Deserialize decodes the JSON payload of the events into the pipe
	// context message.
	Deserialize bool
}

// ReceiveSettings controls the checkpointing and the concurrency of the
// endpoint.
type ReceiveSettings struct {
	// CheckpointInterval is the maximum time between partition checkpoints.
	// Defaults to 1 minute.
	CheckpointInterval time.Duration
	// CheckpointMessageCount is the maximum number of processed events left
	// uncommitted in a partition. Defaults to 5000.
	CheckpointMessageCount int
	// ConcurrencyLimit is the maximum number of handler invocations running
	// at the same time across all partitions. Defaults to 1.
	ConcurrencyLimit int
}

const (
	defaultCheckpointInterval     = time.Minute
	defaultCheckpointMessageCount = 5000
	defaultConcurrencyLimit       = 1
)

var ErrInvalidReceiveSettings = errors.New("invalid receive settings")

func (s *ReceiveSettings) checkpointInterval() time.Duration {
	if s.CheckpointInterval != 0 {
		return s.CheckpointInterval
	}
	return defaultCheckpointInterval
}

func (s *ReceiveSettings) checkpointMessageCount() uint {
	if s.CheckpointMessageCount > 0 {
		return uint(s.CheckpointMessageCount)
	}
	return defaultCheckpointMessageCount
}

func (s *ReceiveSettings) concurrencyLimit() uint {
	if s.ConcurrencyLimit > 0 {
		return uint(s.ConcurrencyLimit)
	}
	return defaultConcurrencyLimit
}

// Validate checks the receive settings. Zero values select the defaults,
// negative values are rejected.
func (s *ReceiveSettings) Validate() error {
	if s.CheckpointInterval < 0 {
		return errors.Join(ErrInvalidReceiveSettings, errors.New("checkpoint interval cannot be negative"))
	}
	if s.CheckpointMessageCount < 0 {
		return errors.Join(ErrInvalidReceiveSettings, errors.New("checkpoint message count cannot be negative"))
	}
	if s.ConcurrencyLimit < 0 {
		return errors.Join(ErrInvalidReceiveSettings, errors.New("concurrency limit cannot be negative"))
	}
	return nil
}
