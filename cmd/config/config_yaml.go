// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/xataio/eventpipe/pkg/backoff"
	"github.com/xataio/eventpipe/pkg/endpoint"
	"github.com/xataio/eventpipe/pkg/endpoint/server"
	"github.com/xataio/eventpipe/pkg/handler/webhook"
	"github.com/xataio/eventpipe/pkg/kafka"
	"github.com/xataio/eventpipe/pkg/nats"
	"github.com/xataio/eventpipe/pkg/otel"
	"github.com/xataio/eventpipe/pkg/stream"
	"github.com/xataio/eventpipe/pkg/tls"
	kafkatransport "github.com/xataio/eventpipe/pkg/transport/kafka"
)

type YAMLConfig struct {
	Source          SourceConfig          `mapstructure:"source" yaml:"source"`
	Endpoint        EndpointConfig        `mapstructure:"endpoint" yaml:"endpoint"`
	Handler         HandlerConfig         `mapstructure:"handler" yaml:"handler"`
	StatusServer    *StatusServerConfig   `mapstructure:"status_server" yaml:"status_server"`
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation" yaml:"instrumentation"`
}

type SourceConfig struct {
	Kafka *KafkaConfig `mapstructure:"kafka" yaml:"kafka"`
}

type KafkaConfig struct {
	Servers       []string            `mapstructure:"servers" yaml:"servers"`
	Topic         TopicConfig         `mapstructure:"topic" yaml:"topic"`
	ConsumerGroup ConsumerGroupConfig `mapstructure:"consumer_group" yaml:"consumer_group"`
	TLS           *TLSConfig          `mapstructure:"tls" yaml:"tls"`
	CommitBackoff *BackoffConfig      `mapstructure:"commit_backoff" yaml:"commit_backoff"`
}

type TopicConfig struct {
	Name              string `mapstructure:"name" yaml:"name"`
	Partitions        int    `mapstructure:"partitions" yaml:"partitions"`
	ReplicationFactor int    `mapstructure:"replication_factor" yaml:"replication_factor"`
	AutoCreate        bool   `mapstructure:"auto_create" yaml:"auto_create"`
}

type ConsumerGroupConfig struct {
	ID          string `mapstructure:"id" yaml:"id"`
	StartOffset string `mapstructure:"start_offset" yaml:"start_offset"`
	// timeouts and intervals in milliseconds
	SessionTimeout    int `mapstructure:"session_timeout" yaml:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout" yaml:"rebalance_timeout"`
	MaxBytes          int `mapstructure:"max_bytes" yaml:"max_bytes"`
}

type TLSConfig struct {
	CACert     string `mapstructure:"ca_cert" yaml:"ca_cert"`
	ClientCert string `mapstructure:"client_cert" yaml:"client_cert"`
	ClientKey  string `mapstructure:"client_key" yaml:"client_key"`
}

type BackoffConfig struct {
	Exponential *ExponentialBackoffConfig `mapstructure:"exponential" yaml:"exponential"`
	Constant    *ConstantBackoffConfig    `mapstructure:"constant" yaml:"constant"`
}

type ExponentialBackoffConfig struct {
	MaxRetries      int `mapstructure:"max_retries" yaml:"max_retries"`
	InitialInterval int `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     int `mapstructure:"max_interval" yaml:"max_interval"`
}

type ConstantBackoffConfig struct {
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	Interval   int `mapstructure:"interval" yaml:"interval"`
}

type EndpointConfig struct {
	Receive        ReceiveConfig  `mapstructure:"receive" yaml:"receive"`
	RestartBackoff *BackoffConfig `mapstructure:"restart_backoff" yaml:"restart_backoff"`
	HandlerRetry   *BackoffConfig `mapstructure:"handler_retry" yaml:"handler_retry"`
	ValidateJSON   bool           `mapstructure:"validate_json" yaml:"validate_json"`
	Deserialize    bool           `mapstructure:"deserialize" yaml:"deserialize"`
}

type ReceiveConfig struct {
	// CheckpointInterval in milliseconds
	CheckpointInterval     int `mapstructure:"checkpoint_interval" yaml:"checkpoint_interval"`
	CheckpointMessageCount int `mapstructure:"checkpoint_message_count" yaml:"checkpoint_message_count"`
	ConcurrencyLimit       int `mapstructure:"concurrency_limit" yaml:"concurrency_limit"`
}

type HandlerConfig struct {
	Log     *LogHandlerConfig     `mapstructure:"log" yaml:"log"`
	Webhook *WebhookHandlerConfig `mapstructure:"webhook" yaml:"webhook"`
	Kafka   *KafkaHandlerConfig   `mapstructure:"kafka" yaml:"kafka"`
	Nats    *NatsHandlerConfig    `mapstructure:"nats" yaml:"nats"`
}

type LogHandlerConfig struct {
	IncludePayload bool `mapstructure:"include_payload" yaml:"include_payload"`
}

type WebhookHandlerConfig struct {
	URL     string            `mapstructure:"url" yaml:"url"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
	// ClientTimeout in milliseconds
	ClientTimeout   int  `mapstructure:"client_timeout" yaml:"client_timeout"`
	IncludeMetadata bool `mapstructure:"include_metadata" yaml:"include_metadata"`
}

type KafkaHandlerConfig struct {
	Servers []string     `mapstructure:"servers" yaml:"servers"`
	Topic   TopicConfig  `mapstructure:"topic" yaml:"topic"`
	TLS     *TLSConfig   `mapstructure:"tls" yaml:"tls"`
	Batch   *BatchConfig `mapstructure:"batch" yaml:"batch"`
}

type NatsHandlerConfig struct {
	URL             string           `mapstructure:"url" yaml:"url"`
	CredentialsFile string           `mapstructure:"credentials_file" yaml:"credentials_file"`
	Stream          NatsStreamConfig `mapstructure:"stream" yaml:"stream"`
	TLS             *TLSConfig       `mapstructure:"tls" yaml:"tls"`
}

type NatsStreamConfig struct {
	Name       string `mapstructure:"name" yaml:"name"`
	Replicas   int    `mapstructure:"replicas" yaml:"replicas"`
	AutoCreate bool   `mapstructure:"auto_create" yaml:"auto_create"`
	MaxBytes   int64  `mapstructure:"max_bytes" yaml:"max_bytes"`
	// MaxAge and DuplicateWindow in milliseconds
	MaxAge          int `mapstructure:"max_age" yaml:"max_age"`
	DuplicateWindow int `mapstructure:"duplicate_window" yaml:"duplicate_window"`
}

type BatchConfig struct {
	// Timeout in milliseconds
	Timeout int `mapstructure:"timeout" yaml:"timeout"`
	Size    int `mapstructure:"size" yaml:"size"`
}

type StatusServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
	// timeouts in milliseconds
	ReadTimeout  int `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout" yaml:"write_timeout"`
}

type InstrumentationConfig struct {
	Metrics *MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Traces  *TracesConfig  `mapstructure:"traces" yaml:"traces"`
}

type MetricsConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// CollectionInterval in seconds
	CollectionInterval int `mapstructure:"collection_interval" yaml:"collection_interval"`
}

type TracesConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

var (
	errMissingKafkaSource  = errors.New("kafka source config is required")
	errUnsupportedStartOff = errors.New("unsupported consumer group start offset, must be one of 'earliest' or 'latest'")
)

func (c *YAMLConfig) toStreamConfig() (*stream.Config, error) {
	source, err := c.Source.parseSourceConfig()
	if err != nil {
		return nil, fmt.Errorf("parsing source config: %w", err)
	}

	return &stream.Config{
		Source:       source,
		Endpoint:     c.Endpoint.parseEndpointConfig(),
		Handler:      c.Handler.parseHandlerConfig(),
		StatusServer: c.StatusServer.parseStatusServerConfig(),
	}, nil
}

func (c *SourceConfig) parseSourceConfig() (stream.SourceConfig, error) {
	if c.Kafka == nil {
		return stream.SourceConfig{}, errMissingKafkaSource
	}

	switch c.Kafka.ConsumerGroup.StartOffset {
	case "", "earliest", "latest":
	default:
		return stream.SourceConfig{}, errUnsupportedStartOff
	}

	return stream.SourceConfig{
		Kafka: &kafkatransport.Config{
			Consumer: kafka.ConsumerConfig{
				Conn: kafka.ConnConfig{
					Servers: c.Kafka.Servers,
					Topic:   c.Kafka.Topic.parseTopicConfig(),
					TLS:     c.Kafka.TLS.parseTLSConfig(),
				},
				GroupID:           c.Kafka.ConsumerGroup.ID,
				StartOffset:       c.Kafka.ConsumerGroup.StartOffset,
				SessionTimeout:    millis(c.Kafka.ConsumerGroup.SessionTimeout),
				HeartbeatInterval: millis(c.Kafka.ConsumerGroup.HeartbeatInterval),
				RebalanceTimeout:  millis(c.Kafka.ConsumerGroup.RebalanceTimeout),
				MaxBytes:          c.Kafka.ConsumerGroup.MaxBytes,
			},
			CommitBackoff: c.Kafka.CommitBackoff.parseBackoffConfig(),
		},
	}, nil
}

func (c *EndpointConfig) parseEndpointConfig() endpoint.Config {
	cfg := endpoint.Config{
		Receive: endpoint.ReceiveSettings{
			CheckpointInterval:     millis(c.Receive.CheckpointInterval),
			CheckpointMessageCount: c.Receive.CheckpointMessageCount,
			ConcurrencyLimit:       c.Receive.ConcurrencyLimit,
		},
		ValidateJSON: c.ValidateJSON,
		Deserialize:  c.Deserialize,
	}
	if c.RestartBackoff != nil {
		restartBackoff := c.RestartBackoff.parseBackoffConfig()
		cfg.RestartBackoff = &restartBackoff
	}
	if c.HandlerRetry != nil {
		handlerRetry := c.HandlerRetry.parseBackoffConfig()
		cfg.HandlerRetry = &handlerRetry
	}
	return cfg
}

func (c *HandlerConfig) parseHandlerConfig() stream.HandlerConfig {
	cfg := stream.HandlerConfig{}
	if c.Log != nil {
		cfg.Log = &stream.LogHandlerConfig{IncludePayload: c.Log.IncludePayload}
	}
	if c.Webhook != nil {
		cfg.Webhook = &webhook.Config{
			URL:           c.Webhook.URL,
			Headers:       c.Webhook.Headers,
			ClientTimeout:   millis(c.Webhook.ClientTimeout),
			IncludeMetadata: c.Webhook.IncludeMetadata,
		}
	}
	if c.Kafka != nil {
		writerCfg := kafka.WriterConfig{
			Conn: kafka.ConnConfig{
				Servers: c.Kafka.Servers,
				Topic:   c.Kafka.Topic.parseTopicConfig(),
				TLS:     c.Kafka.TLS.parseTLSConfig(),
			},
		}
		if c.Kafka.Batch != nil {
			writerCfg.BatchTimeout = millis(c.Kafka.Batch.Timeout)
			writerCfg.BatchSize = c.Kafka.Batch.Size
		}
		cfg.Kafka = &stream.KafkaHandlerConfig{Writer: writerCfg}
	}
	if c.Nats != nil {
		cfg.Nats = &stream.NatsHandlerConfig{
			Writer: nats.WriterConfig{
				Conn: nats.ConnConfig{
					URL:             c.Nats.URL,
					CredentialsFile: c.Nats.CredentialsFile,
					Stream: nats.StreamConfig{
						Name:            c.Nats.Stream.Name,
						Replicas:        c.Nats.Stream.Replicas,
						AutoCreate:      c.Nats.Stream.AutoCreate,
						MaxBytes:        c.Nats.Stream.MaxBytes,
						MaxAge:          millis(c.Nats.Stream.MaxAge),
						DuplicateWindow: millis(c.Nats.Stream.DuplicateWindow),
					},
					TLS: c.Nats.TLS.parseTLSConfig(),
				},
			},
		}
	}
	return cfg
}

func (c *StatusServerConfig) parseStatusServerConfig() *server.Config {
	if c == nil {
		return nil
	}
	return &server.Config{
		Address:      c.Address,
		ReadTimeout:  millis(c.ReadTimeout),
		WriteTimeout: millis(c.WriteTimeout),
	}
}

func (c *InstrumentationConfig) toOtelConfig() (*otel.Config, error) {
	cfg := &otel.Config{}
	if c.Metrics != nil {
		cfg.Metrics = &otel.MetricsConfig{
			Endpoint:           c.Metrics.Endpoint,
			CollectionInterval: time.Duration(c.Metrics.CollectionInterval) * time.Second,
		}
	}
	if c.Traces != nil {
		if err := validateSampleRatio(c.Traces.SampleRatio); err != nil {
			return nil, err
		}
		cfg.Traces = &otel.TracesConfig{
			Endpoint:    c.Traces.Endpoint,
			SampleRatio: c.Traces.SampleRatio,
		}
	}
	return cfg, nil
}

func (t *TopicConfig) parseTopicConfig() kafka.TopicConfig {
	return kafka.TopicConfig{
		Name:              t.Name,
		NumPartitions:     t.Partitions,
		ReplicationFactor: t.ReplicationFactor,
		AutoCreate:        t.AutoCreate,
	}
}

func (t *TLSConfig) parseTLSConfig() tls.Config {
	if t == nil {
		return tls.Config{Enabled: false}
	}
	return tls.Config{
		Enabled:        true,
		CaCertFile:     t.CACert,
		ClientCertFile: t.ClientCert,
		ClientKeyFile:  t.ClientKey,
	}
}

func (bo *BackoffConfig) parseBackoffConfig() backoff.Config {
	if bo == nil {
		return backoff.Config{}
	}
	return backoff.Config{
		Exponential: bo.parseExponentialBackoffConfig(),
		Constant:    bo.parseConstantBackoffConfig(),
	}
}

func (bo *BackoffConfig) parseExponentialBackoffConfig() *backoff.ExponentialConfig {
	if bo.Exponential == nil {
		return nil
	}
	return &backoff.ExponentialConfig{
		InitialInterval: millis(bo.Exponential.InitialInterval),
		MaxInterval:     millis(bo.Exponential.MaxInterval),
		MaxRetries:      uint(bo.Exponential.MaxRetries),
	}
}

func (bo *BackoffConfig) parseConstantBackoffConfig() *backoff.ConstantConfig {
	if bo.Constant == nil {
		return nil
	}
	return &backoff.ConstantConfig{
		Interval:   millis(bo.Constant.Interval),
		MaxRetries: uint(bo.Constant.MaxRetries),
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
