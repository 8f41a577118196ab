package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ridesdash/internal/backend"
	"ridesdash/internal/cli"
	"ridesdash/internal/metrics"
	"ridesdash/internal/services"
	"ridesdash/internal/storage"
)

var flagTimeout time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Copy a dataset into the SQLite database",
	Long:  "Load locations, categories and rides from --from, replace the SQLite snapshot in one transaction and announce the import on AMQP when configured.",
	RunE:  runImport,
}

func init() {
	runCmd.Flags().StringVar(&flagSource, "from", string(backend.CSVBackend), "Source backend: csv or sheets")
	runCmd.Flags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "Overall import deadline")
	rootCmd.AddCommand(runCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	from := backend.BackendType(flagSource)
	if from != backend.CSVBackend && from != backend.SheetsBackend {
		return fmt.Errorf("invalid --from %q: must be csv or sheets", flagSource)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.ValidateImport(); err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, flagTimeout)
	defer timeoutCancel()

	m := metrics.New()

	sourceCfg, err := backend.FromAppConfig(cfg, from)
	if err != nil {
		return err
	}
	source, err := backend.NewFactory(logger, m).CreateBackend(ctx, sourceCfg)
	if err != nil {
		return err
	}
	defer source.Close()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	defer repo.Close()

	amqpClient, err := cli.NewAMQPClient(cfg, logger, m)
	if err != nil {
		logger.Warn("Continuing without import notifications", "error", err)
	}

	var publisher services.Publisher
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	svc := services.NewImportService(repo, publisher,
		services.WithImportLogger(logger), services.WithImportMetrics(m))

	imp, err := svc.Import(ctx, from.String(), source.Backend)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %s from %s at %s\n", imp.ID, imp.Source, imp.At.Format(time.RFC3339))
	fmt.Fprintf(out, "  locations:  %d\n  categories: %d\n  rides:      %d\n", imp.Locations, imp.Categories, imp.Rides)
	return nil
}
