package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/kirillkom/docprep/internal/adapters/http"
	"github.com/kirillkom/docprep/internal/observability/metrics"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger API and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			cfg := app.Config
			logger := app.Logger
			httpMetrics := metrics.NewHTTPServerMetrics("docprep", app.Metrics.Registry())

			var runs httpadapter.RunLookup
			if app.Runs != nil {
				runs = app.Runs
			}
			router := httpadapter.NewRouter(cfg, app.Orchestrator, app.Batches, app.Manifests, runs).WithLogger(app.Logger).Handler()

			server := &http.Server{
				Addr:         ":" + cfg.APIPort,
				Handler:      httpMetrics.Middleware("docprep", router),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Minute,
				IdleTimeout:  60 * time.Second,
			}
			metricsServer := &http.Server{
				Addr:              ":" + cfg.MetricsPort,
				Handler:           app.Metrics.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 2)
			go func() {
				logger.Info("api_listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			go func() {
				logger.Info("metrics_listening", "addr", metricsServer.Addr)
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			var serveErr error
			select {
			case <-ctx.Done():
			case serveErr = <-errCh:
				logger.Error("server_error", "error", serveErr)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("api_shutdown_error", "error", err)
			}
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics_shutdown_error", "error", err)
			}
			return serveErr
		},
	}
}
