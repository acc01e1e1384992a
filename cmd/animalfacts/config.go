package main

import (
	"fmt"
	"os"

	"animalfacts/pkg/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	initPath  string
	initForce bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage animalfacts configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (ANIMALFACTS_*)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source.
The search API key is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&initPath, "path", "p", ".animalfacts.yaml", "where to write the file")
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := writeStarterConfig(initPath, initForce); err != nil {
		return err
	}

	term.PrintSuccess("Configuration written")
	term.PrintInfo("Path", initPath)
	term.PrintInfo("Next", "set ANIMALFACTS_SEARCH_API_KEY and ANIMALFACTS_SEARCH_ENGINE_ID before running images")
	return nil
}

// writeStarterConfig saves the default configuration to path. An existing
// file is only replaced when force is set.
func writeStarterConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
	}
	return config.DefaultConfig().Save(path)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(map[string]interface{}{})
	if err != nil {
		return err
	}

	shown := *cfg
	shown.Search.APIKey = maskSecret(shown.Search.APIKey)

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****"
}
