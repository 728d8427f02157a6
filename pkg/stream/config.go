// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"

	"github.com/xataio/eventpipe/pkg/endpoint"
	"github.com/xataio/eventpipe/pkg/endpoint/server"
	"github.com/xataio/eventpipe/pkg/handler/webhook"
	"github.com/xataio/eventpipe/pkg/kafka"
	"github.com/xataio/eventpipe/pkg/nats"
	kafkatransport "github.com/xataio/eventpipe/pkg/transport/kafka"
)

type Config struct {
	Source       SourceConfig
	Endpoint     endpoint.Config
	Handler      HandlerConfig
	StatusServer *server.Config
}

type SourceConfig struct {
	Kafka *kafkatransport.Config
}

// HandlerConfig configures the handler invoked for every event. Only one
// handler can be configured.
type HandlerConfig struct {
	Log     *LogHandlerConfig
	Webhook *webhook.Config
	Kafka   *KafkaHandlerConfig
	Nats    *NatsHandlerConfig
}

type LogHandlerConfig struct {
	IncludePayload bool
}

type KafkaHandlerConfig struct {
	Writer kafka.WriterConfig
}

type NatsHandlerConfig struct {
	Writer nats.WriterConfig
}

var (
	errMissingSource       = errors.New("need at least one source: kafka")
	errMissingHandler      = errors.New("need one handler: log, webhook, kafka or nats")
	errMultipleHandlers    = errors.New("only one handler can be configured")
	errMissingTopic        = errors.New("kafka source topic name must be provided")
	errMissingServers      = errors.New("kafka source servers must be provided")
	errMissingGroupID      = errors.New("kafka source consumer group id must be provided")
	errSameSourceAndTarget = errors.New("kafka handler topic must be different from the source topic")
)

func (c *Config) IsValid() error {
	if c.Source.Kafka == nil {
		return errMissingSource
	}

	sourceConn := c.Source.Kafka.Consumer.Conn
	if len(sourceConn.Servers) == 0 {
		return errMissingServers
	}
	if sourceConn.Topic.Name == "" {
		return errMissingTopic
	}
	if c.Source.Kafka.Consumer.GroupID == "" {
		return errMissingGroupID
	}

	switch c.handlerCount() {
	case 0:
		return errMissingHandler
	case 1:
	default:
		return errMultipleHandlers
	}

	if c.Handler.Kafka != nil && c.Handler.Kafka.Writer.Conn.Topic.Name == sourceConn.Topic.Name {
		return errSameSourceAndTarget
	}

	if err := c.Endpoint.Receive.Validate(); err != nil {
		return err
	}

	return nil
}

func (c *Config) handlerCount() int {
	count := 0
	if c.Handler.Log != nil {
		count++
	}
	if c.Handler.Webhook != nil {
		count++
	}
	if c.Handler.Kafka != nil {
		count++
	}
	if c.Handler.Nats != nil {
		count++
	}
	return count
}
