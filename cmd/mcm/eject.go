package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcm-app/mcm/pkg/compose"
	"github.com/mcm-app/mcm/pkg/service"
)

var (
	ejectOutput  string
	ejectProject string
)

var ejectCmd = &cobra.Command{
	Use:   "eject",
	Short: "Export the resolved services as a compose file",
	Long: `Export the resolved services as a standalone docker-compose file.

Runs the setup phase and resolves every configured service exactly as "mcm
run" would, then writes image, container name, environment, published ports,
bind mounts, restart policy and tty to a compose file. Omitted services are
left out. Files are not provisioned; run "mcm run" once first so that bind
sources under <root>/containers exist.

Flags:
  -o, --output <path>   Output file (default: docker-compose.yaml)
  --project <name>      Compose project name (default: mcm)

Examples:
  mcm eject                        Write ./docker-compose.yaml
  mcm eject -o /tmp/stack.yaml     Write to a custom path
  docker compose -f docker-compose.yaml up -d`,
	RunE: runEject,
}

func init() {
	ejectCmd.Flags().StringVarP(&ejectOutput, "output", "o", "docker-compose.yaml", "Output compose file")
	ejectCmd.Flags().StringVar(&ejectProject, "project", "mcm", "Compose project name")
}

func runEject(cmd *cobra.Command, args []string) error {
	p, err := openProject(true)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	res, err := p.orchestrator.Startup()
	if err != nil {
		return err
	}

	services := enabled(res.Services)
	if len(services) == 0 {
		return fmt.Errorf("no services to eject")
	}
	project, err := compose.Export(ejectProject, services)
	if err != nil {
		return fmt.Errorf("failed to export services: %w", err)
	}

	output, err := filepath.Abs(ejectOutput)
	if err != nil {
		output = ejectOutput
	}
	if err := compose.Write(project, output); err != nil {
		return err
	}

	names, err := compose.Verify(context.Background(), output, project)
	if err != nil {
		return err
	}

	fmt.Printf("Ejected %d services to %s: %s\n", len(names), ejectOutput, strings.Join(names, ", "))
	fmt.Println("\nTo run without mcm:")
	fmt.Printf("  docker compose -f %s up -d\n", ejectOutput)
	return nil
}

func enabled(services []*service.Service) []*service.Service {
	out := make([]*service.Service, 0, len(services))
	for _, s := range services {
		if !s.Omit {
			out = append(out, s)
		}
	}
	return out
}
