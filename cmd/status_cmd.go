// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xataio/eventpipe/cmd/config"
	"github.com/xataio/eventpipe/internal/json"
	"github.com/xataio/eventpipe/pkg/stream"
)

var statusCmd = &cobra.Command{
	Use:    "status",
	Short:  "Checks the provided configuration and whether the kafka source can be reached",
	PreRun: statusFlagBinding,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, _ := pterm.DefaultSpinner.WithText("checking eventpipe status...").Start()

		streamConfig, err := config.ParseStreamConfig()
		if err != nil {
			sp.Fail(err.Error())
			return fmt.Errorf("parsing stream config: %w", err)
		}

		status := stream.NewStatusChecker().Status(context.Background(), streamConfig)

		statusErrs := status.GetErrors()
		if len(statusErrs) == 0 {
			sp.Success("eventpipe status check encountered no issues")
		} else {
			sp.Warning("eventpipe status check identified issues with ", strings.Join(statusErrs.Keys(), ", "))
		}

		if err := print(cmd, status); err != nil {
			sp.Fail("failed to format eventpipe status")
			return err
		}

		return nil
	},
	Example: `
	eventpipe status -c config.env
	eventpipe status --source-url localhost:9092 --topic events
	eventpipe status -c config.yaml --json
	`,
}

type printer interface {
	PrettyPrint() string
}

func print(cmd *cobra.Command, p printer) error {
	str := p.PrettyPrint()
	if cmd.Flags().Lookup("json").Value.String() == trueStr {
		jsonData, err := json.MarshalIndent(p)
		if err != nil {
			return err
		}
		str = string(jsonData)
	}

	fmt.Println(str) //nolint:forbidigo
	return nil
}

func statusFlagBinding(cmd *cobra.Command, _ []string) {
	sourceFlagBinding(cmd)
}
