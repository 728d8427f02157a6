// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/xataio/eventpipe/pkg/backoff"
	"github.com/xataio/eventpipe/pkg/checkpoint"
	checkpointinstrumentation "github.com/xataio/eventpipe/pkg/checkpoint/instrumentation"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/otel"
	"github.com/xataio/eventpipe/pkg/pipe"
	"github.com/xataio/eventpipe/pkg/supervisor"
	"github.com/xataio/eventpipe/pkg/transport"
)

// Endpoint is a receive endpoint. It combines the checkpoint coordinator, the
// pipe and the consumer supervisor into a single startable unit.
type Endpoint struct {
	tracker    checkpoint.Tracker
	supervisor *supervisor.Supervisor
	logger     loglib.Logger
}

type Status struct {
	State      string   `json:"state"`
	Partitions []string `json:"partitions"`
	Error      string   `json:"error,omitempty"`
}

type Option func(*options)

type options struct {
	logger          loglib.Logger
	instrumentation *otel.Instrumentation
	filters         []pipe.Filter
	clock           clockwork.Clock
}

func WithLogger(l loglib.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithInstrumentation(i *otel.Instrumentation) Option {
	return func(o *options) {
		o.instrumentation = i
	}
}

// WithFilters adds user filters to the pipe. They run after the built-in
// validation and deserialization filters, and before the handler.
func WithFilters(filters ...pipe.Filter) Option {
	return func(o *options) {
		o.filters = append(o.filters, filters...)
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New builds a receive endpoint that consumes events from the consumers
// created by the factory on input, and dispatches them to the handler.
func New(cfg *Config, factory transport.ConsumerFactory, handler pipe.Handler, opts ...Option) (*Endpoint, error) {
	o := &options{
		logger: loglib.NewNoopLogger(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Receive.Validate(); err != nil {
		return nil, err
	}

	policy, err := checkpoint.NewPolicy(cfg.Receive.checkpointMessageCount(), cfg.Receive.checkpointInterval())
	if err != nil {
		return nil, err
	}

	coordinator, err := checkpoint.New(policy,
		checkpoint.WithLogger(o.logger),
		checkpoint.WithClock(o.clock))
	if err != nil {
		return nil, err
	}

	tracker, err := checkpointinstrumentation.NewTracker(coordinator, o.instrumentation)
	if err != nil {
		return nil, err
	}

	p, err := buildPipe(cfg, o, tracker, handler)
	if err != nil {
		return nil, err
	}

	supervisorOpts := []supervisor.Option{supervisor.WithLogger(o.logger)}
	if cfg.RestartBackoff.IsSet() {
		supervisorOpts = append(supervisorOpts, supervisor.WithRestartBackoff(backoff.NewProvider(cfg.RestartBackoff)))
	}

	return &Endpoint{
		tracker:    tracker,
		supervisor: supervisor.New(factory, tracker, p, supervisorOpts...),
		logger: loglib.NewLogger(o.logger).WithFields(loglib.Fields{
			loglib.ModuleField: "receive_endpoint",
		}),
	}, nil
}

// buildPipe composes the endpoint filters, in order: tracing, validation,
// deserialization, user filters, retries, concurrency limit and dispatch.
func buildPipe(cfg *Config, o *options, completer pipe.Completer, handler pipe.Handler) (pipe.Pipe, error) {
	builder := pipe.NewBuilder()

	tracingFilter, err := pipe.NewTracingFilter(o.instrumentation)
	if err != nil {
		return nil, err
	}
	builder.Use(tracingFilter)

	if cfg.ValidateJSON {
		builder.Use(pipe.NewValidateJSONFilter())
	}
	if cfg.Deserialize {
		builder.Use(pipe.NewDeserializeFilter())
	}

	builder.Use(o.filters...)

	if cfg.HandlerRetry.IsSet() {
		builder.Use(pipe.NewRetryFilter(backoff.NewProvider(cfg.HandlerRetry), o.logger))
	}

	limitFilter, err := pipe.NewConcurrencyLimitFilter(cfg.Receive.concurrencyLimit(), o.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReceiveSettings, err)
	}
	builder.Use(limitFilter)

	return builder.Build(pipe.NewDispatchFilter(handler, completer, pipe.WithDispatchLogger(o.logger))), nil
}

// Start starts consuming events. Calling it more than once is a noop.
func (e *Endpoint) Start(ctx context.Context) error {
	e.logger.Info("starting receive endpoint")
	return e.supervisor.Start(ctx)
}

// Stop stops consuming events and waits until every partition has been
// closed and its pending checkpoint flushed. Calling it more than once is
// safe.
func (e *Endpoint) Stop(ctx context.Context) error {
	e.logger.Info("stopping receive endpoint")
	if err := e.supervisor.Stop(ctx); err != nil {
		return fmt.Errorf("stopping receive endpoint: %w", err)
	}
	e.logger.Info("receive endpoint stopped")
	return nil
}

// Done is closed once the endpoint has stopped, either because of a Stop
// call or because of a fatal error.
func (e *Endpoint) Done() <-chan struct{} {
	return e.supervisor.Done()
}

// Err returns the fatal error that stopped the endpoint, if any.
func (e *Endpoint) Err() error {
	return e.supervisor.Err()
}

func (e *Endpoint) Status() *Status {
	status := &Status{
		State:      e.supervisor.State().String(),
		Partitions: e.supervisor.Partitions(),
	}
	select {
	case <-e.Done():
		if err := e.Err(); err != nil {
			status.Error = err.Error()
		}
	default:
	}
	return status
}
