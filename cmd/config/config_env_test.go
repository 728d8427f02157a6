// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xataio/eventpipe/pkg/endpoint"
)

func Test_EnvConfigToStreamConfig(t *testing.T) {
	viper.Reset()
	require.NoError(t, LoadFile("test/test_config.env"))

	streamConfig, err := envConfigToStreamConfig()
	assert.NoError(t, err)
	assert.NotNil(t, streamConfig)

	validateTestStreamConfig(t, streamConfig)
}

func Test_EnvConfigToOtelConfig(t *testing.T) {
	viper.Reset()
	require.NoError(t, LoadFile("test/test_config.env"))

	otelConfig, err := envToOtelConfig()
	assert.NoError(t, err)
	assert.NotNil(t, otelConfig)

	validateTestOtelConfig(t, otelConfig)
}

func Test_EnvVarsToStreamConfig(t *testing.T) {
	viper.Reset()
	viper.AutomaticEnv()

	t.Setenv("EVENTPIPE_KAFKA_READER_SERVERS", "localhost:9092")
	t.Setenv("EVENTPIPE_KAFKA_READER_TOPIC_NAME", "events")
	t.Setenv("EVENTPIPE_KAFKA_READER_CONSUMER_GROUP_ID", "eventpipe-group")
	t.Setenv("EVENTPIPE_KAFKA_READER_CONSUMER_GROUP_START_OFFSET", "earliest")
	t.Setenv("EVENTPIPE_KAFKA_READER_SESSION_TIMEOUT", "10s")
	t.Setenv("EVENTPIPE_KAFKA_READER_HEARTBEAT_INTERVAL", "3s")
	t.Setenv("EVENTPIPE_KAFKA_READER_REBALANCE_TIMEOUT", "30s")
	t.Setenv("EVENTPIPE_KAFKA_READER_MAX_BYTES", "1048576")
	t.Setenv("EVENTPIPE_KAFKA_READER_TLS_ENABLED", "true")
	t.Setenv("EVENTPIPE_KAFKA_READER_TLS_CA_CERT_FILE", "/path/to/ca.crt")
	t.Setenv("EVENTPIPE_KAFKA_READER_TLS_CLIENT_CERT_FILE", "/path/to/client.crt")
	t.Setenv("EVENTPIPE_KAFKA_READER_TLS_CLIENT_KEY_FILE", "/path/to/client.key")
	t.Setenv("EVENTPIPE_KAFKA_COMMIT_EXP_BACKOFF_INITIAL_INTERVAL", "100ms")
	t.Setenv("EVENTPIPE_KAFKA_COMMIT_EXP_BACKOFF_MAX_INTERVAL", "5s")
	t.Setenv("EVENTPIPE_KAFKA_COMMIT_EXP_BACKOFF_MAX_RETRIES", "5")

	t.Setenv("EVENTPIPE_RECEIVE_CHECKPOINT_INTERVAL", "5s")
	t.Setenv("EVENTPIPE_RECEIVE_CHECKPOINT_MESSAGE_COUNT", "100")
	t.Setenv("EVENTPIPE_RECEIVE_CONCURRENCY_LIMIT", "10")
	t.Setenv("EVENTPIPE_RECEIVE_VALIDATE_JSON", "true")
	t.Setenv("EVENTPIPE_RECEIVE_DESERIALIZE", "true")
	t.Setenv("EVENTPIPE_RESTART_EXP_BACKOFF_INITIAL_INTERVAL", "1s")
	t.Setenv("EVENTPIPE_RESTART_EXP_BACKOFF_MAX_INTERVAL", "1m")
	t.Setenv("EVENTPIPE_RESTART_EXP_BACKOFF_MAX_RETRIES", "10")
	t.Setenv("EVENTPIPE_HANDLER_RETRY_BACKOFF_INTERVAL", "500ms")
	t.Setenv("EVENTPIPE_HANDLER_RETRY_BACKOFF_MAX_RETRIES", "3")

	t.Setenv("EVENTPIPE_LOG_HANDLER_ENABLED", "true")
	t.Setenv("EVENTPIPE_LOG_HANDLER_INCLUDE_PAYLOAD", "true")
	t.Setenv("EVENTPIPE_WEBHOOK_HANDLER_URL", "http://localhost:9900/webhook")
	t.Setenv("EVENTPIPE_WEBHOOK_HANDLER_CLIENT_TIMEOUT", "10s")
	t.Setenv("EVENTPIPE_WEBHOOK_HANDLER_INCLUDE_METADATA", "true")
	t.Setenv("EVENTPIPE_KAFKA_WRITER_SERVERS", "localhost:9092")
	t.Setenv("EVENTPIPE_KAFKA_WRITER_TOPIC_NAME", "events-mirror")
	t.Setenv("EVENTPIPE_KAFKA_WRITER_TOPIC_PARTITIONS", "1")
	t.Setenv("EVENTPIPE_KAFKA_WRITER_TOPIC_REPLICATION_FACTOR", "1")
	t.Setenv("EVENTPIPE_KAFKA_WRITER_TOPIC_AUTO_CREATE", "true")
	t.Setenv("EVENTPIPE_KAFKA_WRITER_BATCH_TIMEOUT", "1s")
	t.Setenv("EVENTPIPE_KAFKA_WRITER_BATCH_SIZE", "100")
	t.Setenv("EVENTPIPE_NATS_WRITER_URL", "nats://localhost:4222")
	t.Setenv("EVENTPIPE_NATS_WRITER_STREAM_NAME", "events")
	t.Setenv("EVENTPIPE_NATS_WRITER_STREAM_REPLICAS", "1")
	t.Setenv("EVENTPIPE_NATS_WRITER_STREAM_AUTO_CREATE", "true")
	t.Setenv("EVENTPIPE_NATS_WRITER_STREAM_MAX_AGE", "24h")
	t.Setenv("EVENTPIPE_NATS_WRITER_STREAM_DUPLICATE_WINDOW", "2m")

	t.Setenv("EVENTPIPE_STATUS_SERVER_ADDRESS", "localhost:8080")
	t.Setenv("EVENTPIPE_STATUS_SERVER_READ_TIMEOUT", "5s")
	t.Setenv("EVENTPIPE_STATUS_SERVER_WRITE_TIMEOUT", "10s")

	streamConfig, err := envConfigToStreamConfig()
	assert.NoError(t, err)
	assert.NotNil(t, streamConfig)

	validateTestStreamConfig(t, streamConfig)
}

func Test_EnvVarsToOtelConfig(t *testing.T) {
	viper.Reset()
	viper.AutomaticEnv()

	t.Setenv("EVENTPIPE_METRICS_ENDPOINT", "localhost:4317")
	t.Setenv("EVENTPIPE_METRICS_COLLECTION_INTERVAL", "60s")
	t.Setenv("EVENTPIPE_TRACES_ENDPOINT", "localhost:4317")
	t.Setenv("EVENTPIPE_TRACES_SAMPLE_RATIO", "0.5")

	otelConfig, err := envToOtelConfig()
	assert.NoError(t, err)
	assert.NotNil(t, otelConfig)

	validateTestOtelConfig(t, otelConfig)
}

func Test_EnvVarsToOtelConfig_invalidSampleRatio(t *testing.T) {
	viper.Reset()
	viper.AutomaticEnv()

	t.Setenv("EVENTPIPE_TRACES_ENDPOINT", "localhost:4317")
	t.Setenv("EVENTPIPE_TRACES_SAMPLE_RATIO", "2")

	_, err := envToOtelConfig()
	require.ErrorIs(t, err, errInvalidSampleRatio)
}

func Test_EnvVarsToStreamConfig_webhookHeaders(t *testing.T) {
	viper.Reset()
	viper.AutomaticEnv()

	t.Setenv("EVENTPIPE_WEBHOOK_HANDLER_URL", "http://localhost:9900/webhook")
	t.Setenv("EVENTPIPE_WEBHOOK_HANDLER_HEADERS", `{"Authorization":"Bearer token"}`)

	streamConfig, err := envConfigToStreamConfig()
	require.NoError(t, err)
	require.NotNil(t, streamConfig.Handler.Webhook)
	require.Equal(t, map[string]string{"Authorization": "Bearer token"}, streamConfig.Handler.Webhook.Headers)
	require.Nil(t, streamConfig.Source.Kafka)
}

func Test_EnvVarsToStreamConfig_negativeReceiveSettings(t *testing.T) {
	viper.Reset()
	viper.AutomaticEnv()

	t.Setenv("EVENTPIPE_RECEIVE_CHECKPOINT_MESSAGE_COUNT", "-5")
	t.Setenv("EVENTPIPE_RECEIVE_CONCURRENCY_LIMIT", "-1")

	streamConfig, err := envConfigToStreamConfig()
	require.NoError(t, err)
	require.Equal(t, -5, streamConfig.Endpoint.Receive.CheckpointMessageCount)
	require.Equal(t, -1, streamConfig.Endpoint.Receive.ConcurrencyLimit)
	require.ErrorIs(t, streamConfig.Endpoint.Receive.Validate(), endpoint.ErrInvalidReceiveSettings)
}
