package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ridesdash/internal/backend"
	"ridesdash/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the dashboard views as tables",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&flagReportFrom, "from", "", "Backend to read: csv, sqlite or sheets (default DATA_BACKEND)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	typ := backend.BackendType(flagReportFrom)
	if typ != "" && !typ.IsValid() {
		return fmt.Errorf("invalid --from %q: must be one of %v", flagReportFrom, backend.GetBackendTypes())
	}
	backendCfg, err := backend.FromAppConfig(cfg, typ)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LoadTimeout)
	defer cancel()

	res, err := backend.NewFactory(logger, nil).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer res.Close()

	snap, err := res.Backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", backendCfg.Type, err)
	}

	out := cmd.OutOrStdout()
	if !snap.Ready() {
		fmt.Fprintln(out, "  Dataset is incomplete: locations, categories and rides are all required.")
	}
	for _, t := range report.Build(snap) {
		fmt.Fprintln(out, report.Render(t))
	}
	return nil
}
