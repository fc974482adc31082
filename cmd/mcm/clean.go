package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcm-app/mcm/pkg/orchestrator"
)

var (
	cleanData        bool
	cleanCredentials bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Stop all services and remove managed data",
	Long: `Stop every configured service and optionally remove managed data.

Services are stopped in descending weight order. With --data the provisioned
folders and files under <root>/containers are removed; with --credentials the
stored registry credentials are removed so the next run prompts again.
config.json is always kept.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanData, "data", false, "Remove provisioned data under <root>/containers")
	cleanCmd.Flags().BoolVar(&cleanCredentials, "credentials", false, "Remove stored registry credentials")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptContext()
	defer cancel()

	p, err := openProject(false)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	fmt.Println("Stopping services...")
	if err := p.orchestrator.StopServices(ctx, orchestrator.StopOptions{}); err != nil {
		return err
	}

	if cleanData {
		fmt.Println("Removing containers directory...")
		if err := p.ws.CleanContainers(); err != nil {
			return err
		}
	}
	if cleanCredentials {
		fmt.Println("Removing stored credentials...")
		if err := p.ws.CleanCredentials(); err != nil {
			return err
		}
	}

	fmt.Println("Clean complete")
	return nil
}
