package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootDir   string
	assetsDir string
	verbose   bool
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "mcm",
	Short: "Run a local multi-container environment",
	Long: `MCM runs a set of service containers on the local Docker engine.

Services are described by definition files in the assets directory and
enabled in <root>/config.json. Every run resolves configuration defaults,
registry credentials and host entries once, then starts services one at a
time in ascending weight order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Managed root directory (default $MCM_DIRECTORY or ~/.mcm)")
	rootCmd.PersistentFlags().StringVar(&assetsDir, "assets", "", "Packaged assets directory (default $MCM_ASSETS or "+defaultAssetsDir+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(ejectCmd)
	rootCmd.AddCommand(cleanCmd)
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func syncLogger() {
	_ = logger.Sync()
}

// interruptContext returns a context cancelled on Ctrl+C or by the returned
// cancel function.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
