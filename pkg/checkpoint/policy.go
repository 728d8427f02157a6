// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"errors"
	"fmt"
	"time"
)

// Policy defines when the pending position of a partition is committed. A
// checkpoint happens as soon as either threshold is reached.
type Policy struct {
	// MaxPendingCount is the maximum number of processed events that can be
	// left uncommitted.
	MaxPendingCount uint
	// MaxElapsed is the maximum time allowed since the last checkpoint before
	// the next processed event is committed.
	MaxElapsed time.Duration
}

var ErrInvalidPolicy = errors.New("invalid checkpoint policy")

// NewPolicy returns a validated checkpoint policy.
func NewPolicy(maxPendingCount uint, maxElapsed time.Duration) (Policy, error) {
	p := Policy{
		MaxPendingCount: maxPendingCount,
		MaxElapsed:      maxElapsed,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	if p.MaxPendingCount == 0 {
		return fmt.Errorf("%w: max pending count must be greater than 0", ErrInvalidPolicy)
	}
	if p.MaxElapsed <= 0 {
		return fmt.Errorf("%w: max elapsed time must be greater than 0", ErrInvalidPolicy)
	}
	return nil
}
