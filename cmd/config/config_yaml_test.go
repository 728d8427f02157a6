// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/xataio/eventpipe/pkg/endpoint"
	"github.com/xataio/eventpipe/pkg/otel"
	"github.com/xataio/eventpipe/pkg/tls"
)

func TestYAMLConfig_toStreamConfig(t *testing.T) {
	viper.Reset()
	require.NoError(t, LoadFile("test/test_config.yaml"))

	var config YAMLConfig
	err := viper.Unmarshal(&config)
	require.NoError(t, err)

	streamConfig, err := config.toStreamConfig()
	require.NoError(t, err)

	validateTestStreamConfig(t, streamConfig)
}

func TestYAMLConfig_ParseStreamConfig(t *testing.T) {
	viper.Reset()
	require.NoError(t, LoadFile("test/test_config.yaml"))

	streamConfig, err := ParseStreamConfig()
	require.NoError(t, err)
	validateTestStreamConfig(t, streamConfig)

	otelConfig, err := ParseInstrumentationConfig()
	require.NoError(t, err)
	validateTestOtelConfig(t, otelConfig)
}

func TestYAMLConfig_ParseStreamConfig_negativeReceiveSettings(t *testing.T) {
	viper.Reset()
	require.NoError(t, LoadFile("test/test_config.yaml"))
	viper.Set("endpoint.receive.checkpoint_message_count", -1)
	viper.Set("endpoint.receive.concurrency_limit", -1)

	streamConfig, err := ParseStreamConfig()
	require.NoError(t, err)
	require.Equal(t, -1, streamConfig.Endpoint.Receive.CheckpointMessageCount)
	require.Equal(t, -1, streamConfig.Endpoint.Receive.ConcurrencyLimit)
	require.ErrorIs(t, streamConfig.IsValid(), endpoint.ErrInvalidReceiveSettings)
}

func TestYAMLConfig_toStreamConfig_ErrorCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  YAMLConfig
		wantErr error
	}{
		{
			name:    "err - missing kafka source",
			config:  YAMLConfig{},
			wantErr: errMissingKafkaSource,
		},
		{
			name: "err - invalid start offset",
			config: YAMLConfig{
				Source: SourceConfig{
					Kafka: &KafkaConfig{
						Servers: []string{"localhost:9092"},
						ConsumerGroup: ConsumerGroupConfig{
							ID:          "group",
							StartOffset: "middle",
						},
					},
				},
			},
			wantErr: errUnsupportedStartOff,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.config.toStreamConfig()
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestYAMLConfig_toStreamConfig_optionalSections(t *testing.T) {
	t.Parallel()

	config := YAMLConfig{
		Source: SourceConfig{
			Kafka: &KafkaConfig{
				Servers: []string{"localhost:9092"},
				Topic:   TopicConfig{Name: "events"},
				ConsumerGroup: ConsumerGroupConfig{
					ID: "group",
				},
			},
		},
		Handler: HandlerConfig{
			Log: &LogHandlerConfig{},
		},
	}

	streamConfig, err := config.toStreamConfig()
	require.NoError(t, err)

	require.Nil(t, streamConfig.StatusServer)
	require.Nil(t, streamConfig.Endpoint.RestartBackoff)
	require.Nil(t, streamConfig.Endpoint.HandlerRetry)
	require.Nil(t, streamConfig.Handler.Webhook)
	require.Nil(t, streamConfig.Handler.Kafka)
	require.NotNil(t, streamConfig.Handler.Log)
	require.False(t, streamConfig.Handler.Log.IncludePayload)
	require.Equal(t, tls.Config{Enabled: false}, streamConfig.Source.Kafka.Consumer.Conn.TLS)
	require.False(t, streamConfig.Source.Kafka.CommitBackoff.IsSet())
}

func TestInstrumentationConfig_toOtelConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  InstrumentationConfig
		want    *otel.Config
		wantErr error
	}{
		{
			name: "ok - metrics and traces",
			config: InstrumentationConfig{
				Metrics: &MetricsConfig{
					Endpoint:           "localhost:4317",
					CollectionInterval: 30,
				},
				Traces: &TracesConfig{
					Endpoint:    "localhost:4317",
					SampleRatio: 1,
				},
			},
			want: &otel.Config{
				Metrics: &otel.MetricsConfig{
					Endpoint:           "localhost:4317",
					CollectionInterval: 30 * time.Second,
				},
				Traces: &otel.TracesConfig{
					Endpoint:    "localhost:4317",
					SampleRatio: 1,
				},
			},
		},
		{
			name:   "ok - nothing configured",
			config: InstrumentationConfig{},
			want:   &otel.Config{},
		},
		{
			name: "err - sample ratio above 1",
			config: InstrumentationConfig{
				Traces: &TracesConfig{
					Endpoint:    "localhost:4317",
					SampleRatio: 1.5,
				},
			},
			wantErr: errInvalidSampleRatio,
		},
		{
			name: "err - negative sample ratio",
			config: InstrumentationConfig{
				Traces: &TracesConfig{
					Endpoint:    "localhost:4317",
					SampleRatio: -0.1,
				},
			},
			wantErr: errInvalidSampleRatio,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := tc.config.toOtelConfig()
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.want, got)
		})
	}
}
