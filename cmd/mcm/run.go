package main

import (

	"github.com/spf13/cobra"

	"github.com/mcm-app/mcm/pkg/orchestrator"
)

var (
	runInclude []string
	runOmit    []string
	runUpdate  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create and start service containers",
	Long: `Create and start the services enabled in <root>/config.json.

Runs the setup phase once (registry credentials, configuration defaults and
host entries), then starts services one at a time in ascending weight order.
Starting a service removes its existing containers, pulls the image when it is
missing locally, provisions its folders and files under <root>/containers and
runs a fresh container. Services marked "omit" are stopped instead.

The first failure stops the run and exits with status 1.

Flags:
  --include <a,b>   Only act on these services
  --omit <a,b>      Stop these services instead of starting them
  --update          Pull images even when they exist locally

Examples:
  mcm run                      Start every configured service
  mcm run --include api,web    Start only api and web
  mcm run --omit haproxy       Start everything except haproxy
  mcm run --update             Refresh images before starting`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runInclude, "include", nil, "Only run these services")
	runCmd.Flags().StringSliceVar(&runOmit, "omit", nil, "Stop these services instead of running them")
	runCmd.Flags().BoolVar(&runUpdate, "update", false, "Pull images even when present locally")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptContext()
	defer cancel()

	p, err := openProject(true)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	return p.orchestrator.RunServices(ctx, orchestrator.RunOptions{
		Include: runInclude,
		Omit:    runOmit,
		Update:  runUpdate,
	})
}
