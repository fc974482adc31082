package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mcm-app/mcm/pkg/state"
)

var psFormat string

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List services and their containers",
	Long: `List the configured services and the state of their containers.

Containers are matched to services by image. A service with no container
reports "missing"; a service marked "omit" in the configuration reports
"omitted". Does not prompt for registry credentials.

Table columns:
  NAME     Service name from config.json
  IMAGE    Image reference including tag
  STATUS   running, stopped, missing or omitted
  PORTS    Published host:container/protocol mappings

Flags:
  -o, --format <fmt>   Output format: table (default), json, yaml

Examples:
  mcm ps             Table view of all services
  mcm ps -o json     JSON output for scripting
  mcm ps -o json | jq '.[] | select(.status=="running") | .name'`,
	RunE: runPs,
}

func init() {
	psCmd.Flags().StringVarP(&psFormat, "format", "o", "table", "Output format (table, json, yaml)")
}

func runPs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	p, err := openProject(false)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	statuses, err := p.orchestrator.Status(ctx, p.client())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return writeStatus(os.Stdout, psFormat, statuses)
}

func writeStatus(out io.Writer, format string, statuses []state.ServiceInfo) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(statuses); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tIMAGE\tSTATUS\tPORTS")
		for _, s := range statuses {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Image, s.Status, formatPorts(s.Ports))
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func formatPorts(ports []state.PortInfo) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		parts = append(parts, fmt.Sprintf("%d:%d/%s", p.Host, p.Container, p.Protocol))
	}
	return strings.Join(parts, ", ")
}
