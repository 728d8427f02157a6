// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/spf13/viper"
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

func envConfigToStreamConfig() (*stream.Config, error) {
	return &stream.Config{
		Source:       parseSourceConfig(),
		Endpoint:     parseEndpointConfig(),
		Handler:      parseHandlerConfig(),
		StatusServer: parseStatusServerConfig(),
	}, nil
}

// source parsing

func parseSourceConfig() stream.SourceConfig {
	kafkaServers := viper.GetStringSlice("EVENTPIPE_KAFKA_READER_SERVERS")
	kafkaTopic := viper.GetString("EVENTPIPE_KAFKA_READER_TOPIC_NAME")
	if len(kafkaServers) == 0 || kafkaTopic == "" {
		return stream.SourceConfig{}
	}

	return stream.SourceConfig{
		Kafka: &kafkatransport.Config{
			Consumer: kafka.ConsumerConfig{
				Conn: kafka.ConnConfig{
					Servers: kafkaServers,
					Topic: kafka.TopicConfig{
						Name: kafkaTopic,
					},
					TLS: parseTLSConfig("EVENTPIPE_KAFKA_READER"),
				},
				GroupID:           viper.GetString("EVENTPIPE_KAFKA_READER_CONSUMER_GROUP_ID"),
				StartOffset:       viper.GetString("EVENTPIPE_KAFKA_READER_CONSUMER_GROUP_START_OFFSET"),
				SessionTimeout:    viper.GetDuration("EVENTPIPE_KAFKA_READER_SESSION_TIMEOUT"),
				HeartbeatInterval: viper.GetDuration("EVENTPIPE_KAFKA_READER_HEARTBEAT_INTERVAL"),
				RebalanceTimeout:  viper.GetDuration("EVENTPIPE_KAFKA_READER_REBALANCE_TIMEOUT"),
				MaxBytes:          viper.GetInt("EVENTPIPE_KAFKA_READER_MAX_BYTES"),
			},
			CommitBackoff: parseBackoffConfig("EVENTPIPE_KAFKA_COMMIT"),
		},
	}
}

// endpoint parsing

func parseEndpointConfig() endpoint.Config {
	cfg := endpoint.Config{
		Receive: endpoint.ReceiveSettings{
			CheckpointInterval:     viper.GetDuration("EVENTPIPE_RECEIVE_CHECKPOINT_INTERVAL"),
			CheckpointMessageCount: viper.GetInt("EVENTPIPE_RECEIVE_CHECKPOINT_MESSAGE_COUNT"),
			ConcurrencyLimit:       viper.GetInt("EVENTPIPE_RECEIVE_CONCURRENCY_LIMIT"),
		},
		ValidateJSON: viper.GetBool("EVENTPIPE_RECEIVE_VALIDATE_JSON"),
		Deserialize:  viper.GetBool("EVENTPIPE_RECEIVE_DESERIALIZE"),
	}

	if restartBackoff := parseBackoffConfig("EVENTPIPE_RESTART"); restartBackoff.IsSet() {
		cfg.RestartBackoff = &restartBackoff
	}
	if handlerRetry := parseBackoffConfig("EVENTPIPE_HANDLER_RETRY"); handlerRetry.IsSet() {
		cfg.HandlerRetry = &handlerRetry
	}

	return cfg
}

// handler parsing

func parseHandlerConfig() stream.HandlerConfig {
	return stream.HandlerConfig{
		Log:     parseLogHandlerConfig(),
		Webhook: parseWebhookHandlerConfig(),
		Kafka:   parseKafkaHandlerConfig(),
		Nats:    parseNatsHandlerConfig(),
	}
}

func parseLogHandlerConfig() *stream.LogHandlerConfig {
	if !viper.GetBool("EVENTPIPE_LOG_HANDLER_ENABLED") {
		return nil
	}
	return &stream.LogHandlerConfig{
		IncludePayload: viper.GetBool("EVENTPIPE_LOG_HANDLER_INCLUDE_PAYLOAD"),
	}
}

func parseWebhookHandlerConfig() *webhook.Config {
	url := viper.GetString("EVENTPIPE_WEBHOOK_HANDLER_URL")
	if url == "" {
		return nil
	}
	cfg := &webhook.Config{
		URL:             url,
		ClientTimeout:   viper.GetDuration("EVENTPIPE_WEBHOOK_HANDLER_CLIENT_TIMEOUT"),
		IncludeMetadata: viper.GetBool("EVENTPIPE_WEBHOOK_HANDLER_INCLUDE_METADATA"),
	}
	// headers are provided as a JSON object
	if headers := viper.GetStringMapString("EVENTPIPE_WEBHOOK_HANDLER_HEADERS"); len(headers) > 0 {
		cfg.Headers = headers
	}
	return cfg
}

func parseKafkaHandlerConfig() *stream.KafkaHandlerConfig {
	kafkaServers := viper.GetStringSlice("EVENTPIPE_KAFKA_WRITER_SERVERS")
	kafkaTopic := viper.GetString("EVENTPIPE_KAFKA_WRITER_TOPIC_NAME")
	if len(kafkaServers) == 0 || kafkaTopic == "" {
		return nil
	}

	return &stream.KafkaHandlerConfig{
		Writer: kafka.WriterConfig{
			Conn: kafka.ConnConfig{
				Servers: kafkaServers,
				Topic: kafka.TopicConfig{
					Name:              kafkaTopic,
					NumPartitions:     viper.GetInt("EVENTPIPE_KAFKA_WRITER_TOPIC_PARTITIONS"),
					ReplicationFactor: viper.GetInt("EVENTPIPE_KAFKA_WRITER_TOPIC_REPLICATION_FACTOR"),
					AutoCreate:        viper.GetBool("EVENTPIPE_KAFKA_WRITER_TOPIC_AUTO_CREATE"),
				},
				TLS: parseTLSConfig("EVENTPIPE_KAFKA_WRITER"),
			},
			BatchTimeout: viper.GetDuration("EVENTPIPE_KAFKA_WRITER_BATCH_TIMEOUT"),
			BatchSize:    viper.GetInt("EVENTPIPE_KAFKA_WRITER_BATCH_SIZE"),
		},
	}
}

func parseNatsHandlerConfig() *stream.NatsHandlerConfig {
	natsURL := viper.GetString("EVENTPIPE_NATS_WRITER_URL")
	streamName := viper.GetString("EVENTPIPE_NATS_WRITER_STREAM_NAME")
	if natsURL == "" || streamName == "" {
		return nil
	}

	return &stream.NatsHandlerConfig{
		Writer: nats.WriterConfig{
			Conn: nats.ConnConfig{
				URL:             natsURL,
				CredentialsFile: viper.GetString("EVENTPIPE_NATS_WRITER_CREDENTIALS_FILE"),
				Stream: nats.StreamConfig{
					Name:            streamName,
					Replicas:        viper.GetInt("EVENTPIPE_NATS_WRITER_STREAM_REPLICAS"),
					AutoCreate:      viper.GetBool("EVENTPIPE_NATS_WRITER_STREAM_AUTO_CREATE"),
					MaxBytes:        viper.GetInt64("EVENTPIPE_NATS_WRITER_STREAM_MAX_BYTES"),
					MaxAge:          viper.GetDuration("EVENTPIPE_NATS_WRITER_STREAM_MAX_AGE"),
					DuplicateWindow: viper.GetDuration("EVENTPIPE_NATS_WRITER_STREAM_DUPLICATE_WINDOW"),
				},
				TLS: parseTLSConfig("EVENTPIPE_NATS_WRITER"),
			},
		},
	}
}

func parseStatusServerConfig() *server.Config {
	address := viper.GetString("EVENTPIPE_STATUS_SERVER_ADDRESS")
	if address == "" {
		return nil
	}
	return &server.Config{
		Address:      address,
		ReadTimeout:  viper.GetDuration("EVENTPIPE_STATUS_SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("EVENTPIPE_STATUS_SERVER_WRITE_TIMEOUT"),
	}
}

// instrumentation parsing

func envToOtelConfig() (*otel.Config, error) {
	cfg := &otel.Config{}

	if metricsEndpoint := viper.GetString("EVENTPIPE_METRICS_ENDPOINT"); metricsEndpoint != "" {
		cfg.Metrics = &otel.MetricsConfig{
			Endpoint:           metricsEndpoint,
			CollectionInterval: viper.GetDuration("EVENTPIPE_METRICS_COLLECTION_INTERVAL"),
		}
	}

	if tracesEndpoint := viper.GetString("EVENTPIPE_TRACES_ENDPOINT"); tracesEndpoint != "" {
		sampleRatio := viper.GetFloat64("EVENTPIPE_TRACES_SAMPLE_RATIO")
		if err := validateSampleRatio(sampleRatio); err != nil {
			return nil, err
		}
		cfg.Traces = &otel.TracesConfig{
			Endpoint:    tracesEndpoint,
			SampleRatio: sampleRatio,
		}
	}

	return cfg, nil
}

// common parsing

func parseBackoffConfig(prefix string) backoff.Config {
	return backoff.Config{
		Exponential: parseExponentialBackoffConfig(prefix),
		Constant:    parseConstantBackoffConfig(prefix),
	}
}

func parseExponentialBackoffConfig(prefix string) *backoff.ExponentialConfig {
	initialInterval := viper.GetDuration(fmt.Sprintf("%s_EXP_BACKOFF_INITIAL_INTERVAL", prefix))
	maxInterval := viper.GetDuration(fmt.Sprintf("%s_EXP_BACKOFF_MAX_INTERVAL", prefix))
	maxRetries := viper.GetUint(fmt.Sprintf("%s_EXP_BACKOFF_MAX_RETRIES", prefix))
	if initialInterval == 0 && maxInterval == 0 && maxRetries == 0 {
		return nil
	}
	return &backoff.ExponentialConfig{
		InitialInterval: initialInterval,
		MaxInterval:     maxInterval,
		MaxRetries:      maxRetries,
	}
}

func parseConstantBackoffConfig(prefix string) *backoff.ConstantConfig {
	interval := viper.GetDuration(fmt.Sprintf("%s_BACKOFF_INTERVAL", prefix))
	maxRetries := viper.GetUint(fmt.Sprintf("%s_BACKOFF_MAX_RETRIES", prefix))
	if interval == 0 && maxRetries == 0 {
		return nil
	}
	return &backoff.ConstantConfig{
		Interval:   interval,
		MaxRetries: maxRetries,
	}
}

func parseTLSConfig(prefix string) tls.Config {
	return tls.Config{
		Enabled:        viper.GetBool(fmt.Sprintf("%s_TLS_ENABLED", prefix)),
		CaCertFile:     viper.GetString(fmt.Sprintf("%s_TLS_CA_CERT_FILE", prefix)),
		ClientCertFile: viper.GetString(fmt.Sprintf("%s_TLS_CLIENT_CERT_FILE", prefix)),
		ClientKeyFile:  viper.GetString(fmt.Sprintf("%s_TLS_CLIENT_KEY_FILE", prefix)),
	}
}
