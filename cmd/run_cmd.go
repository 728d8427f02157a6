// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xataio/eventpipe/cmd/config"
	"github.com/xataio/eventpipe/internal/log/zerolog"
	"github.com/xataio/eventpipe/pkg/stream"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Run starts receiving events from the configured kafka topic and hands them to the configured handler",
	PreRun:  runFlagBinding,
	RunE:    withProfiling(withSignalWatcher(run)),
	Example: `
	eventpipe run --source-url localhost:9092 --topic events --group-id eventpipe --webhook-url http://localhost:9910/webhook
	eventpipe run --source-url localhost:9092 --topic events --group-id eventpipe --log-events
	eventpipe run --config config.yaml --log-level info
	eventpipe run --config config.env`,
}

func run(ctx context.Context) error {
	logger := zerolog.NewLogger(&zerolog.Config{
		LogLevel: viper.GetString("EVENTPIPE_LOG_LEVEL"),
	})
	zerolog.SetGlobalLogger(logger)

	streamConfig, err := config.ParseStreamConfig()
	if err != nil {
		return fmt.Errorf("parsing stream config: %w", err)
	}

	provider, err := newInstrumentationProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	return stream.Run(ctx, zerolog.NewStdLogger(logger), streamConfig, provider.NewInstrumentation("run"))
}

func runFlagBinding(cmd *cobra.Command, _ []string) {
	sourceFlagBinding(cmd)

	// to be able to overwrite configuration with flags when yaml config file is
	// provided
	if cmd.Flags().Lookup("group-id").Changed {
		viper.BindPFlag("source.kafka.consumer_group.id", cmd.Flags().Lookup("group-id"))
	}
	if cmd.Flags().Lookup("webhook-url").Changed {
		viper.BindPFlag("handler.webhook.url", cmd.Flags().Lookup("webhook-url"))
	}
	if cmd.Flags().Lookup("log-events").Changed {
		viper.Set("handler.log.include_payload", true)
	}

	// to be able to overwrite configuration with flags when env config file is
	// provided or when no configuration is provided
	viper.BindPFlag("EVENTPIPE_KAFKA_READER_CONSUMER_GROUP_ID", cmd.Flags().Lookup("group-id"))
	viper.BindPFlag("EVENTPIPE_WEBHOOK_HANDLER_URL", cmd.Flags().Lookup("webhook-url"))
	if cmd.Flags().Lookup("log-events").Changed {
		viper.Set("EVENTPIPE_LOG_HANDLER_ENABLED", true)
		viper.Set("EVENTPIPE_LOG_HANDLER_INCLUDE_PAYLOAD", true)
	}
}

func sourceFlagBinding(cmd *cobra.Command) {
	if cmd.Flags().Lookup("source-url").Changed {
		viper.BindPFlag("source.kafka.servers", cmd.Flags().Lookup("source-url"))
	}
	if cmd.Flags().Lookup("topic").Changed {
		viper.BindPFlag("source.kafka.topic.name", cmd.Flags().Lookup("topic"))
	}

	viper.BindPFlag("EVENTPIPE_KAFKA_READER_SERVERS", cmd.Flags().Lookup("source-url"))
	viper.BindPFlag("EVENTPIPE_KAFKA_READER_TOPIC_NAME", cmd.Flags().Lookup("topic"))
}
