package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isdmx/reqbox/config"
)

// configPath is the value of the persistent --config flag
var configPath string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reqbox",
	Short: "REST request runner with sandboxed pre-request scripts",
	Long: `Reqbox sends HTTP requests after letting an optional JavaScript
pre-request script adjust them.

Scripts run in an isolated runtime with a wall-clock budget. They see a
mutable "request" object and an "environment" map, plus console, timers and
Buffer. They have no file system, process or network access.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a config file (default: config.yaml in . or ./config)")
}

// Execute runs the root command and returns any error.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
