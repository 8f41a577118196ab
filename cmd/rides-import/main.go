package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ridesdash/internal/cli"
	"ridesdash/internal/config"
	applog "ridesdash/internal/log"
)

var (
	flagSource     string
	flagReportFrom string
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "rides-import",
	Short:         "Import and inspect ride datasets",
	Long:          "Copy ride datasets from CSV files or Google Sheets into the local SQLite database and print the dashboard views as tables.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
}

func main() {
	cli.LoadEnvFile()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and the logger shared by every command.
func setup() (*config.Config, *applog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	return cfg, cli.SetupLogger(level).WithComponent(applog.ComponentImport), nil
}
