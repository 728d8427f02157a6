// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	synclib "github.com/xataio/eventpipe/internal/sync"
	"github.com/xataio/eventpipe/pkg/backoff"
	"github.com/xataio/eventpipe/pkg/checkpoint"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/pipe"
	"github.com/xataio/eventpipe/pkg/transport"
)

// Supervisor owns the lifecycle of the transport consumer. It restarts the
// consumer when it faults, and routes the partition notifications into the
// checkpoint tracker and the events into the pipe.
type Supervisor struct {
	factory         transport.ConsumerFactory
	tracker         checkpoint.Tracker
	pipe            pipe.Pipe
	backoffProvider backoff.Provider
	minHealthyRun   time.Duration
	clock           clockwork.Clock
	logger          loglib.Logger

	stateMu sync.Mutex
	state   State

	lifecycleMu sync.Mutex
	started     bool
	stopping    bool
	cancelRun   context.CancelFunc
	done        chan struct{}
	err         error

	// admission gate for event dispatch
	admitMu  sync.RWMutex
	admitted bool
	inflight sync.WaitGroup

	owned    *synclib.Map[string, struct{}]
	assigned atomic.Bool
}

type Option func(*Supervisor)

var (
	ErrStopped          = errors.New("supervisor is stopped")
	errConsumerFinished = errors.New("consumer finished unexpectedly")
	errHealthyRun       = errors.New("consumer faulted after a healthy run")
)

const defaultMinHealthyRun = 30 * time.Second

var defaultRestartBackoff = &backoff.Config{
	Exponential: &backoff.ExponentialConfig{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		MaxRetries:      10,
	},
}

func New(factory transport.ConsumerFactory, tracker checkpoint.Tracker, p pipe.Pipe, opts ...Option) *Supervisor {
	s := &Supervisor{
		factory:         factory,
		tracker:         tracker,
		pipe:            p,
		backoffProvider: backoff.NewProvider(defaultRestartBackoff),
		minHealthyRun:   defaultMinHealthyRun,
		clock:           clockwork.NewRealClock(),
		logger:          loglib.NewNoopLogger(),
		state:           StateCreated,
		done:            make(chan struct{}),
		owned:           synclib.NewMap[string, struct{}](),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func WithLogger(l loglib.Logger) Option {
	return func(s *Supervisor) {
		s.logger = loglib.NewLogger(l).WithFields(loglib.Fields{
			loglib.ModuleField: "consumer_supervisor",
		})
	}
}

// WithRestartBackoff sets the backoff used between consumer restarts. Once
// the retries are exhausted, the supervisor stops with a fatal error.
func WithRestartBackoff(provider backoff.Provider) Option {
	return func(s *Supervisor) {
		s.backoffProvider = provider
	}
}

// WithMinHealthyRun sets how long a consumer needs to run with assigned
// partitions for its run to be considered healthy. The restart backoff is
// reset after a healthy run.
func WithMinHealthyRun(d time.Duration) Option {
	return func(s *Supervisor) {
		s.minHealthyRun = d
	}
}

// WithClock sets the clock used to measure the consumer run duration.
func WithClock(c clockwork.Clock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

// Start launches the supervision loop. The context on input is only used for
// its values; the consumer runs until Stop is called or the restarts are
// exhausted. Calling Start more than once is a noop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.stopping {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelRun = cancel

	s.admitMu.Lock()
	s.admitted = true
	s.admitMu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop stops admitting events, cancels the consumer and waits until every
// owned partition has been closed and the consumer released, or until the
// context is done. Calling Stop more than once is safe.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.lifecycleMu.Lock()
	if !s.stopping {
		s.stopping = true

		s.admitMu.Lock()
		s.admitted = false
		s.admitMu.Unlock()

		if !s.started {
			s.transition(StateStopped)
			close(s.done)
		} else {
			s.transition(StateStopping)
			s.cancelRun()
		}
	}
	s.lifecycleMu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the supervisor has stopped, either because Stop was
// called or because the consumer restarts were exhausted.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Err returns the fatal error that stopped the supervisor, if any. It should
// only be called once Done is closed.
func (s *Supervisor) Err() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	return s.err
}

func (s *Supervisor) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Partitions returns the ids of the partitions currently owned by the
// consumer, sorted.
func (s *Supervisor) Partitions() []string {
	ids := s.owned.Keys()
	slices.Sort(ids)
	return ids
}

func (s *Supervisor) run(ctx context.Context) {
	err := s.supervise(ctx)

	s.lifecycleMu.Lock()
	s.err = err
	s.stopping = true
	s.lifecycleMu.Unlock()

	if err != nil {
		s.logger.Error(err, "consumer supervisor stopped with fatal error")
	}
	s.transition(StateStopped)
	close(s.done)
}

// supervise runs the consumer until the context is canceled, restarting it
// with backoff when it faults. The backoff is reset after every healthy run.
func (s *Supervisor) supervise(ctx context.Context) error {
	for {
		bo := s.backoffProvider(ctx)
		err := bo.RetryNotify(
			func() error {
				healthy, err := s.runConsumer(ctx)
				if ctx.Err() != nil {
					return nil
				}
				if err == nil {
					err = errConsumerFinished
				}
				if healthy {
					s.logger.Warn(err, "consumer faulted, restarting")
					return backoff.Permanent(fmt.Errorf("%w: %w", errHealthyRun, err))
				}
				return err
			},
			func(err error, d time.Duration) {
				s.logger.Warn(err, "consumer faulted, restarting after backoff", loglib.Fields{
					"backoff": d,
				})
			})

		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, errHealthyRun):
			continue
		case err != nil:
			return fmt.Errorf("consumer restarts exhausted: %w", err)
		default:
			return nil
		}
	}
}

// runConsumer creates and runs a consumer instance until it returns. Once it
// does, the in-flight events are awaited, the partitions that are still owned
// are closed and the consumer is released. It returns true if the run was
// healthy: partitions were assigned and it lasted at least the minimum healthy
// run duration.
func (s *Supervisor) runConsumer(ctx context.Context) (bool, error) {
	s.transition(StateStarting)
	s.assigned.Store(false)

	consumer, err := s.factory(ctx)
	if err != nil {
		s.transition(StateFaulted)
		return false, fmt.Errorf("creating consumer: %w", err)
	}

	s.transition(StateRunning)
	startTime := s.clock.Now()
	runErr := consumer.Run(ctx, &consumerHandler{supervisor: s})
	healthy := s.assigned.Load() && s.clock.Since(startTime) >= s.minHealthyRun

	s.inflight.Wait()

	reason := transport.CloseReasonShutdown
	if ctx.Err() == nil {
		reason = transport.CloseReasonFaulted
		s.transition(StateFaulted)
		if runErr != nil {
			s.logger.Error(runErr, "consumer run failed")
		}
	}
	s.closeOwnedPartitions(ctx, reason)

	if err := consumer.Close(); err != nil {
		s.logger.Warn(err, "closing consumer")
	}

	return healthy, runErr
}

func (s *Supervisor) closeOwnedPartitions(ctx context.Context, reason transport.CloseReason) {
	for _, id := range s.owned.Keys() {
		if err := s.closePartition(ctx, id, reason); err != nil {
			s.logger.Error(err, "closing partition", loglib.Fields{
				loglib.PartitionIDField: id,
				"reason":                reason.String(),
			})
		}
	}
}

// closePartition closes the partition if still owned. The checkpoint commit
// must go through even when the consumer context has been canceled.
func (s *Supervisor) closePartition(ctx context.Context, partitionID string, reason transport.CloseReason) error {
	if _, owned := s.owned.LoadAndDelete(partitionID); !owned {
		return nil
	}
	return s.tracker.OnPartitionClosing(context.WithoutCancel(ctx), partitionID, reason)
}

func (s *Supervisor) admit() bool {
	s.admitMu.RLock()
	defer s.admitMu.RUnlock()
	if !s.admitted {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Supervisor) transition(to State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	from := s.state
	if !from.canTransition(to) {
		return
	}
	s.state = to
	s.logger.Info("consumer state changed", loglib.Fields{
		"from": from.String(),
		"to":   to.String(),
	})
}

// consumerHandler receives the notifications of the running consumer.
type consumerHandler struct {
	supervisor *Supervisor
}

func (h *consumerHandler) OnPartitionInitializing(ctx context.Context, partitionID string) error {
	s := h.supervisor
	s.owned.Set(partitionID, struct{}{})
	s.assigned.Store(true)
	s.tracker.OnPartitionInitializing(ctx, partitionID)
	return nil
}

func (h *consumerHandler) OnPartitionClosing(ctx context.Context, partitionID string, reason transport.CloseReason) error {
	return h.supervisor.closePartition(ctx, partitionID, reason)
}

// OnEvent sends the event through the pipe. In-flight events are not
// canceled by a stop request, so the pipe runs with a context that is not
// canceled with the consumer.
func (h *consumerHandler) OnEvent(ctx context.Context, event *transport.Event) error {
	s := h.supervisor
	if !s.admit() {
		return transport.ErrStopping
	}
	defer s.inflight.Done()

	return s.pipe.Send(context.WithoutCancel(ctx), &pipe.Context{Event: event})
}
