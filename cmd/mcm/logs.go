package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mcm-app/mcm/pkg/docker"
	"github.com/mcm-app/mcm/pkg/state"
)

var (
	logsFollow bool
	logsTail   int
)

var logsCmd = &cobra.Command{
	Use:   "logs SERVICE",
	Short: "View output from a service's containers",
	Long: `View output from the containers of a configured service.

Without --follow, prints the last N lines (default 100) of every container
and exits. With --follow, streams new output until interrupted (Ctrl+C).
A negative --tail prints the whole log.

Examples:
  mcm logs api               Last 100 lines from api
  mcm logs --follow api      Stream api output continuously
  mcm logs --tail 20 db      Last 20 lines from db`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsFollow, "follow", false, "Follow log output")
	logsCmd.Flags().IntVar(&logsTail, "tail", 100, "Number of lines to show from the end")
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptContext()
	defer cancel()

	p, err := openProject(false)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	target, err := findTarget(p.orchestrator.Targets(), args[0])
	if err != nil {
		return err
	}

	client := p.client()
	containers, err := client.GetAllContainers(ctx, target.BaseImage)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		return fmt.Errorf("no containers found for service %s", target.Name)
	}

	opts := docker.LogOptions{Follow: logsFollow, Tail: tailOption(logsTail)}
	g, ctx := errgroup.WithContext(ctx)
	for _, ctr := range containers {
		id := ctr.ID
		g.Go(func() error {
			return client.Logs(ctx, id, opts, os.Stdout, os.Stderr)
		})
	}
	return g.Wait()
}

func findTarget(targets []state.Target, name string) (state.Target, error) {
	for _, t := range targets {
		if t.Name == name {
			return t, nil
		}
	}
	return state.Target{}, fmt.Errorf("service %s is not configured", name)
}

func tailOption(n int) string {
	if n < 0 {
		return "all"
	}
	return strconv.Itoa(n)
}
