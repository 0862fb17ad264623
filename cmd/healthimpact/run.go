package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"waterwatch-hq/healthimpact/pkg/cli"
	"waterwatch-hq/healthimpact/pkg/config"
	"waterwatch-hq/healthimpact/pkg/server"
	"waterwatch-hq/healthimpact/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	rulesFile     string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the health impact API server",
	Long: `Start the health impact API server with the specified configuration.

The server loads the health rules, opens the element catalog and serves the
evaluation API until it receives SIGINT or SIGTERM.

Examples:
  # Start with default config
  healthimpact run

  # Start with custom config
  healthimpact run --config /etc/healthimpact/config.yaml

  # Override listen address and rule file
  healthimpact run --listen 0.0.0.0:8000 --rules rules/2024.yaml

  # Validate config and rules without starting the server
  healthimpact run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.rulesFile, "rules", "", "override health rules file")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and rules without serving")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if err := applyRunOverrides(cfg); err != nil {
		return err
	}

	logger, err := logging.New(&cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	srv, err := server.New(ctx, server.Options{
		Config: cfg,
		Logger: logger,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		srv.Close()
		fmt.Fprintf(out, "✓ Configuration valid\n✓ Rules %s loaded (%d elements)\n",
			srv.Engine().Rules().Version(), srv.Engine().Rules().Len())
		return nil
	}

	printBanner(out, cfg)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// applyRunOverrides applies the run flags on top of the loaded config and
// validates the result again.
func applyRunOverrides(cfg *config.Config) error {
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.rulesFile != "" {
		cfg.Rules.FilePath = runFlags.rulesFile
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Health Impact Engine v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(w, "Configuration: %s\n", cfgFile)
	}
	rules := cfg.Rules.FilePath
	switch {
	case cfg.Rules.Git.Enabled:
		rules = fmt.Sprintf("git %s@%s/%s", cfg.Rules.Git.Repository, cfg.Rules.Git.Branch, cfg.Rules.Git.Path)
	case rules == "":
		rules = "built-in"
	}
	fmt.Fprintf(w, "Rules: %s\n", rules)
	fmt.Fprintf(w, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(w, "✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")
}
