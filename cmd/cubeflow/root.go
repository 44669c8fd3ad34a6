package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/cubeflow/internal/cli"
	"github.com/aretw0/cubeflow/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cubeflow",
	Short: "Cubeflow answers financial questions with validated MQL queries",
	Long: `Cubeflow turns natural-language financial questions into MQL queries for Vena OLAP models.
It selects the model, finds the hierarchy members the question refers to, generates the query
and validates it against the data service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errReported exits non-zero without printing; the IO handler already showed the failure.
var errReported = errors.New("run failed")

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
}

// loadConfig reads the config file and the environment, applying flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// loadApp builds the application from configuration.
func loadApp(cmd *cobra.Command, opts cli.Options) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(cfg, opts)
}
