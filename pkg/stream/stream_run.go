// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xataio/eventpipe/pkg/endpoint"
	"github.com/xataio/eventpipe/pkg/endpoint/server"
	kafkahandler "github.com/xataio/eventpipe/pkg/handler/kafka"
	loghandler "github.com/xataio/eventpipe/pkg/handler/logger"
	natshandler "github.com/xataio/eventpipe/pkg/handler/nats"
	"github.com/xataio/eventpipe/pkg/handler/webhook"
	"github.com/xataio/eventpipe/pkg/kafka"
	kafkainstrumentation "github.com/xataio/eventpipe/pkg/kafka/instrumentation"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/nats"
	natsinstrumentation "github.com/xataio/eventpipe/pkg/nats/instrumentation"
	"github.com/xataio/eventpipe/pkg/otel"
	"github.com/xataio/eventpipe/pkg/pipe"
	"github.com/xataio/eventpipe/pkg/transport"
	kafkatransport "github.com/xataio/eventpipe/pkg/transport/kafka"

	"golang.org/x/sync/errgroup"
)

// stopTimeout bounds the time spent flushing the partition checkpoints once
// the run context is canceled.
const stopTimeout = 30 * time.Second

type closerFn func() error

var noopCloser closerFn = func() error { return nil }

// Run will run the configured receive endpoint until the context is canceled
// or the endpoint stops with a fatal error. This call is blocking.
func Run(ctx context.Context, logger loglib.Logger, config *Config, instrumentation *otel.Instrumentation) error {
	if err := config.IsValid(); err != nil {
		return fmt.Errorf("incompatible configuration: %w", err)
	}

	factory := newConsumerFactory(logger, config, instrumentation)

	handler, closer, err := newHandler(logger, &config.Handler, instrumentation)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer(); err != nil {
			logger.Error(err, "closing handler")
		}
	}()

	ep, err := endpoint.New(&config.Endpoint, factory, handler,
		endpoint.WithLogger(logger),
		endpoint.WithInstrumentation(instrumentation))
	if err != nil {
		return fmt.Errorf("error setting up receive endpoint: %w", err)
	}

	return run(ctx, logger, ep, config.StatusServer)
}

type runnableEndpoint interface {
	server.StatusProvider
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Done() <-chan struct{}
	Err() error
}

func run(ctx context.Context, logger loglib.Logger, ep runnableEndpoint, serverCfg *server.Config) error {
	if err := ep.Start(ctx); err != nil {
		return fmt.Errorf("starting receive endpoint: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		select {
		case <-ep.Done():
			if err := ep.Err(); err != nil {
				return fmt.Errorf("receive endpoint stopped: %w", err)
			}
			return nil
		case <-egCtx.Done():
		}

		logger.Info("stopping receive endpoint...")
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		return ep.Stop(stopCtx)
	})

	if serverCfg != nil {
		statusServer := server.New(serverCfg, ep, server.WithLogger(logger))
		eg.Go(func() error {
			logger.Info("starting status server...")
			return statusServer.Start()
		})
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
			case <-ep.Done():
			}
			defer logger.Info("status server stopped")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
			defer cancel()
			return statusServer.Shutdown(shutdownCtx)
		})
	}

	if err := eg.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}

	return nil
}

func newConsumerFactory(logger loglib.Logger, config *Config, instrumentation *otel.Instrumentation) transport.ConsumerFactory {
	logger.Info("kafka source configured")
	return kafkatransport.NewConsumerFactory(config.Source.Kafka,
		kafkatransport.WithLogger(logger),
		kafkatransport.WithInstrumentation(instrumentation))
}

func newHandler(logger loglib.Logger, config *HandlerConfig, instrumentation *otel.Instrumentation) (pipe.Handler, closerFn, error) {
	switch {
	case config.Log != nil:
		logger.Info("log handler configured")
		opts := []loghandler.Option{}
		if config.Log.IncludePayload {
			opts = append(opts, loghandler.WithPayload())
		}
		return loghandler.New(logger, opts...), noopCloser, nil

	case config.Webhook != nil:
		logger.Info("webhook handler configured")
		h, err := webhook.New(config.Webhook, webhook.WithLogger(logger))
		if err != nil {
			return nil, noopCloser, fmt.Errorf("error setting up webhook handler: %w", err)
		}
		return h, noopCloser, nil

	case config.Kafka != nil:
		logger.Info("kafka handler configured")
		kafkaWriter, err := kafka.NewWriter(config.Kafka.Writer, logger)
		if err != nil {
			return nil, noopCloser, fmt.Errorf("error setting up kafka writer: %w", err)
		}
		writer, err := kafkainstrumentation.NewWriter(kafkaWriter, instrumentation)
		if err != nil {
			kafkaWriter.Close()
			return nil, noopCloser, err
		}
		h := kafkahandler.New(writer, kafkahandler.WithLogger(logger))
		return h, h.Close, nil

	case config.Nats != nil:
		logger.Info("nats jetstream handler configured")
		natsWriter, err := nats.NewWriter(config.Nats.Writer, logger)
		if err != nil {
			return nil, noopCloser, fmt.Errorf("error setting up nats jetstream writer: %w", err)
		}
		writer, err := natsinstrumentation.NewWriter(natsWriter, instrumentation)
		if err != nil {
			natsWriter.Close()
			return nil, noopCloser, err
		}
		h := natshandler.New(writer, natshandler.WithLogger(logger))
		return h, h.Close, nil

	default:
		return nil, noopCloser, errMissingHandler
	}
}
