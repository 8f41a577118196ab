package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ridesdash/internal/backend"
	"ridesdash/internal/cli"
	apphttp "ridesdash/internal/http"
	applog "ridesdash/internal/log"
	"ridesdash/internal/metrics"
	"ridesdash/internal/storage"
	"ridesdash/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.SetupLogger("info").Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	m := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg, "")
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger, m).CreateBackend(startupCtx, backendCfg)
	startupCancel()
	if err != nil {
		logger.Error("Failed to initialize data backend", applog.FieldError, err, applog.FieldBackend, backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	amqpClient, err := cli.NewAMQPClient(cfg, logger, m)
	if err != nil {
		// Freshness reporting is optional; keep serving without it.
		logger.Error("AMQP unavailable, import notifications disabled", applog.FieldError, err)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	// A nil *amqp.Client must not reach the watcher as a non-nil Consumer.
	var watcher *worker.ImportWatcher
	if amqpClient != nil {
		watcher = worker.NewImportWatcher(amqpClient, logger, m)
	} else {
		watcher = worker.NewImportWatcher(nil, logger, m)
	}
	seedLastImport(logger, res, watcher)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if amqpClient != nil {
		if err := watcher.Start(ctx); err != nil {
			logger.Error("Failed to start import watcher", applog.FieldError, err)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Loader:             res.Backend,
		Imports:            watcher,
		Backend:            backendCfg.Type.String(),
		Logger:             logger,
		Metrics:            m,
		LoadTimeout:        cfg.LoadTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ChartCacheSize:     cfg.ChartCacheSize,
		ChartCacheTTL:      cfg.ChartCacheTTL,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ridesdash server", "port", cfg.Port, applog.FieldBackend, backendCfg.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			cancel()
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	if watcher.IsRunning() {
		if err := watcher.Stop(shutdownCtx); err != nil {
			logger.Warn("Import watcher did not stop in time", applog.FieldError, err)
		}
	}
	logger.Info("Server stopped gracefully")
}

// seedLastImport primes the watcher from the database so freshness is known
// before the first notification arrives.
func seedLastImport(logger *applog.Logger, res *backend.BackendResult, watcher *worker.ImportWatcher) {
	if res.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	imp, err := res.History.LastImport(ctx)
	switch {
	case errors.Is(err, storage.ErrNoImport):
		logger.Info("No dataset imported yet")
	case err != nil:
		logger.Warn("Failed to read last import", applog.FieldError, err)
	default:
		watcher.Seed(imp)
		logger.Info("Last import", applog.FieldImportID, imp.ID, applog.FieldSource, imp.Source, "imported_at", imp.At)
	}
}
