// Command storefront runs the storefront state service and talks to it.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"storefront/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	target     string
	timeout    time.Duration

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront state service",
	Long: `storefront holds the loading flag, the product catalog and the shopping
bag in one store and serves it over gRPC.

Run "storefront serve" to start the service, then use the client commands
to dispatch actions and inspect or watch the state.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if target != "" {
			cfg.Server.Target = target
		}

		logger, err = buildLogger(cfg.Log, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func buildLogger(lc config.LogConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (or set STOREFRONT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&target, "target", "", "gRPC target for client commands (default from config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Client request timeout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
