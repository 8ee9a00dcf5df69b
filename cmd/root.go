// Package cmd defines and implements the CLI commands for the imgcrawl
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imgcrawl/imgcrawl/internal/config"
	"github.com/imgcrawl/imgcrawl/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imgcrawl",
		Short: "A bounded, polite, same-domain image crawler.",
		Long: `imgcrawl discovers and downloads images reachable from a seed URL
within a depth limit. It respects a randomized per-request delay,
retries transient failures with exponential backoff, validates that
downloaded content is actually image data, and generates collision-free
human-readable filenames.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults and IMGCRAWL_* environment variables)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newStripCmd())

	return cmd
}

// loadConfig reads configuration and builds the session logger; it is
// shared by every subcommand.
func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
