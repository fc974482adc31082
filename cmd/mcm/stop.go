package main

import (

	"github.com/spf13/cobra"

	"github.com/mcm-app/mcm/pkg/orchestrator"
)

var stopInclude []string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop and remove service containers",
	Long: `Stop and remove the containers of the configured services.

Services are stopped in descending weight order, so the services started last
are stopped first. Provisioned data under <root>/containers is preserved; use
"mcm clean --data" to remove it.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringSliceVar(&stopInclude, "include", nil, "Only stop these services")
}

func runStop(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptContext()
	defer cancel()

	p, err := openProject(false)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	return p.orchestrator.StopServices(ctx, orchestrator.StopOptions{Include: stopInclude})
}
