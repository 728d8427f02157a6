// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
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

// this function validates the stream configuration produced from the test
// configuration in the test directory.
func validateTestStreamConfig(t *testing.T, streamConfig *stream.Config) {
	expectedConfig := &stream.Config{
		Source: stream.SourceConfig{
			Kafka: &kafkatransport.Config{
				Consumer: kafka.ConsumerConfig{
					Conn: kafka.ConnConfig{
						Servers: []string{"localhost:9092"},
						Topic: kafka.TopicConfig{
							Name: "events",
						},
						TLS: tls.Config{
							Enabled:        true,
							CaCertFile:     "/path/to/ca.crt",
							ClientCertFile: "/path/to/client.crt",
							ClientKeyFile:  "/path/to/client.key",
						},
					},
					GroupID:           "eventpipe-group",
					StartOffset:       "earliest",
					SessionTimeout:    10 * time.Second,
					HeartbeatInterval: 3 * time.Second,
					RebalanceTimeout:  30 * time.Second,
					MaxBytes:          1048576,
				},
				CommitBackoff: backoff.Config{
					Exponential: &backoff.ExponentialConfig{
						InitialInterval: 100 * time.Millisecond,
						MaxInterval:     5 * time.Second,
						MaxRetries:      5,
					},
				},
			},
		},
		Endpoint: endpoint.Config{
			Receive: endpoint.ReceiveSettings{
				CheckpointInterval:     5 * time.Second,
				CheckpointMessageCount: 100,
				ConcurrencyLimit:       10,
			},
			RestartBackoff: &backoff.Config{
				Exponential: &backoff.ExponentialConfig{
					InitialInterval: time.Second,
					MaxInterval:     time.Minute,
					MaxRetries:      10,
				},
			},
			HandlerRetry: &backoff.Config{
				Constant: &backoff.ConstantConfig{
					Interval:   500 * time.Millisecond,
					MaxRetries: 3,
				},
			},
			ValidateJSON: true,
			Deserialize:  true,
		},
		Handler: stream.HandlerConfig{
			Log: &stream.LogHandlerConfig{
				IncludePayload: true,
			},
			Webhook: &webhook.Config{
				URL:             "http://localhost:9900/webhook",
				ClientTimeout:   10 * time.Second,
				IncludeMetadata: true,
			},
			Kafka: &stream.KafkaHandlerConfig{
				Writer: kafka.WriterConfig{
					Conn: kafka.ConnConfig{
						Servers: []string{"localhost:9092"},
						Topic: kafka.TopicConfig{
							Name:              "events-mirror",
							NumPartitions:     1,
							ReplicationFactor: 1,
							AutoCreate:        true,
						},
						TLS: tls.Config{
							Enabled: false,
						},
					},
					BatchTimeout: time.Second,
					BatchSize:    100,
				},
			},
			Nats: &stream.NatsHandlerConfig{
				Writer: nats.WriterConfig{
					Conn: nats.ConnConfig{
						URL: "nats://localhost:4222",
						Stream: nats.StreamConfig{
							Name:            "events",
							Replicas:        1,
							AutoCreate:      true,
							MaxAge:          24 * time.Hour,
							DuplicateWindow: 2 * time.Minute,
						},
						TLS: tls.Config{
							Enabled: false,
						},
					},
				},
			},
		},
		StatusServer: &server.Config{
			Address:      "localhost:8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}

	assert.Equal(t, expectedConfig, streamConfig)
}

func validateTestOtelConfig(t *testing.T, otelConfig *otel.Config) {
	expectedConfig := &otel.Config{
		Metrics: &otel.MetricsConfig{
			Endpoint:           "localhost:4317",
			CollectionInterval: 60 * time.Second,
		},
		Traces: &otel.TracesConfig{
			Endpoint:    "localhost:4317",
			SampleRatio: 0.5,
		},
	}

	assert.Equal(t, expectedConfig, otelConfig)
}
