package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"waterwatch-hq/healthimpact/pkg/cli"
	"waterwatch-hq/healthimpact/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "healthimpact",
	Short: "Health Impact Engine - heavy-metal water quality risk assessment",
	Long: `Health Impact Engine classifies heavy-metal concentrations measured in
water samples into health risk tiers and reports the associated diseases,
health effects and symptoms.

It runs as an HTTP service or evaluates samples directly from the command
line, using the rule set compiled into the binary or a rule file on disk.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration named by --config with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// commandContext returns the command's context, or Background for commands
// invoked directly rather than through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
