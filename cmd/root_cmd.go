// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xataio/eventpipe/cmd/config"
	"github.com/xataio/eventpipe/internal/log/zerolog"
	"github.com/xataio/eventpipe/internal/profiling"
	"github.com/xataio/eventpipe/pkg/otel"
)

// Version is the eventpipe version
var (
	Version = "development"
	Env     string
)

const trueStr = "true"

func Prepare() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "eventpipe",
		Short:        "eventpipe receives events from partitioned kafka topics and checkpoints their progress",
		SilenceUsage: true,
		Version:      version(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			return nil
		},
	}

	// environment variables are looked up with their full EVENTPIPE_ name
	viper.AutomaticEnv()

	// Flag definition

	// root cmd
	rootCmd.PersistentFlags().StringP("config", "c", "", ".env or .yaml config file to use with eventpipe if any")
	rootCmd.PersistentFlags().String("log-level", "debug", "log level for the application. One of trace, debug, info, warn, error, fatal, panic")

	// run cmd
	runCmd.Flags().StringSlice("source-url", nil, "Kafka servers to consume from")
	runCmd.Flags().String("topic", "", "Kafka topic to consume from")
	runCmd.Flags().String("group-id", "", "Kafka consumer group id")
	runCmd.Flags().String("webhook-url", "", "Webhook url to deliver the received events to")
	runCmd.Flags().Bool("log-events", false, "Whether to log the received events instead of delivering them")
	runCmd.Flags().Bool("profile", false, "Whether to expose a /debug/pprof endpoint")
	runCmd.Flags().String("profile-address", "localhost:6060", "Address of the /debug/pprof endpoint when profiling is enabled")

	// status cmd
	statusCmd.Flags().StringSlice("source-url", nil, "Kafka servers to check")
	statusCmd.Flags().String("topic", "", "Kafka topic to check")
	statusCmd.Flags().Bool("json", false, "Output the status in JSON format")

	// Flag binding for root cmd
	rootFlagBinding(rootCmd)

	// register subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	return rootCmd
}

// Execute executes the root command.
func Execute() error {
	cmd := Prepare()
	return cmd.Execute()
}

func withSignalWatcher(fn func(ctx context.Context) error) func(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		<-sigc
		cancel()
	}()

	return func(cmd *cobra.Command, args []string) error {
		defer cancel()
		return fn(ctx)
	}
}

func withProfiling(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) (err error) {
	return func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("profile").Value.String() != trueStr {
			return fn(cmd, args)
		}

		logger := zerolog.NewStdLogger(zerolog.NewLogger(&zerolog.Config{
			LogLevel: viper.GetString("EVENTPIPE_LOG_LEVEL"),
		}))
		profiling.StartProfilingServer(cmd.Flags().Lookup("profile-address").Value.String(), logger)
		return fn(cmd, args)
	}
}

func rootFlagBinding(cmd *cobra.Command) {
	viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("EVENTPIPE_LOG_LEVEL", cmd.PersistentFlags().Lookup("log-level"))
}

func version() string {
	if Env != "" {
		return Env + " (" + Version + ")"
	}
	return Version
}

func newInstrumentationProvider() (otel.InstrumentationProvider, error) {
	cfg, err := config.ParseInstrumentationConfig()
	if err != nil {
		return nil, fmt.Errorf("parsing instrumentation config: %w", err)
	}

	p, err := otel.NewInstrumentationProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialisating instrumentation provider: %w", err)
	}
	return p, nil
}
