// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff retries operations following a backoff policy.
type Backoff interface {
	RetryNotify(Operation, Notify) error
	Retry(Operation) error
}

type (
	Operation func() error
	Notify    func(error, time.Duration)
)

// Provider returns a fresh backoff bound to the context on input. Backoffs are
// stateful, so a new one is needed for every sequence of retries.
type Provider func(ctx context.Context) Backoff

type Config struct {
	Exponential *ExponentialConfig
	Constant    *ConstantConfig
}

type ExponentialConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsedTime stops the retries once reached. Zero means no limit.
	MaxElapsedTime time.Duration
	MaxRetries     uint
}

type ConstantConfig struct {
	Interval   time.Duration
	MaxRetries uint
}

// ErrPermanent marks an error that must not be retried.
var ErrPermanent = errors.New("permanent error, do not retry")

type permanentError struct {
	err error
}

// Permanent wraps the error on input so that it stops any retries. The
// original error is still reachable through errors.Is/As.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func (e *permanentError) Is(target error) bool { return target == ErrPermanent }

// NewProvider returns a backoff provider based on the config on input. If no
// valid input is provided, a no retry backoff provider is returned instead.
func NewProvider(cfg *Config) Provider {
	switch {
	case cfg == nil:
		return func(context.Context) Backoff { return NewStopBackoff() }
	case cfg.Constant != nil:
		return func(ctx context.Context) Backoff {
			return newBackoff(ctx, backoff.NewConstantBackOff(cfg.Constant.Interval), cfg.Constant.MaxRetries)
		}
	case cfg.Exponential != nil:
		return func(ctx context.Context) Backoff {
			exp := backoff.NewExponentialBackOff()
			exp.InitialInterval = cfg.Exponential.InitialInterval
			if cfg.Exponential.MaxInterval > 0 {
				exp.MaxInterval = cfg.Exponential.MaxInterval
			}
			exp.MaxElapsedTime = cfg.Exponential.MaxElapsedTime
			return newBackoff(ctx, exp, cfg.Exponential.MaxRetries)
		}
	default:
		return func(context.Context) Backoff { return NewStopBackoff() }
	}
}

// IsSet returns true if either the exponential or the constant backoff are
// configured.
func (c *Config) IsSet() bool {
	return c != nil && (c.Exponential != nil || c.Constant != nil)
}

// policyBackoff is a wrapper around a cenkalti backoff policy.
type policyBackoff struct {
	backoff.BackOff
}

func newBackoff(ctx context.Context, bo backoff.BackOff, maxRetries uint) *policyBackoff {
	if maxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(maxRetries))
	}
	return &policyBackoff{
		BackOff: backoff.WithContext(bo, ctx),
	}
}

func (b *policyBackoff) Retry(op Operation) error {
	return retryNotify(b, op, nil)
}

func (b *policyBackoff) RetryNotify(op Operation, notify Notify) error {
	return retryNotify(b, op, notify)
}

// NewStopBackoff returns a backoff that never retries.
func NewStopBackoff() Backoff {
	return &policyBackoff{
		BackOff: &backoff.StopBackOff{},
	}
}

func retryNotify(b backoff.BackOff, op Operation, notify Notify) error {
	boOp := func() error {
		err := op()
		if errors.Is(err, ErrPermanent) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(boOp, b, backoff.Notify(notify))
}
