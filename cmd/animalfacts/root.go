package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"animalfacts/pkg/config"
	"animalfacts/pkg/logger"
	"animalfacts/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile      string
	logLevel        string
	noColor         bool
	metricsTextfile string

	term = ui.Stdout()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "animalfacts",
	Short: "Scrape animal facts and fetch one image per animal",
	Long: `animalfacts runs two independent batch pipelines.

  facts   scrapes the animal listing and detail pages into a JSON file
  images  reads that file and downloads a 256x256 image per animal

The JSON file is the only hand-off between the two.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			os.Setenv("NO_COLOR", "1")
			term = ui.Stdout()
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			term.PrintLogo()
		}
	},
}

// Execute runs the root command and exits with status 1 on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		term.PrintError("Error", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.animalfacts.yaml or ~/.config/animalfacts/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "write run metrics in Prometheus text format to this file")

	rootCmd.SetVersionTemplate(`animalfacts {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// setup loads the configuration with the given command flags merged on top
// and creates the logger for this run.
func setup(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if metricsTextfile != "" {
		flags["metrics-textfile"] = metricsTextfile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, log.WithField("version", version), nil
}
