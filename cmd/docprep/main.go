package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docprep/internal/bootstrap"
	"github.com/kirillkom/docprep/internal/config"
	"github.com/kirillkom/docprep/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "docprep",
		Short:         "Extract text and provenance metadata from document batches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(convertCmd(), manifestCmd(), prepareCmd(), serveCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads the environment config, lets override adjust it and wires the app.
func openApp(ctx context.Context, override func(*config.Config)) (*bootstrap.App, error) {
	cfg := config.Load()
	if override != nil {
		override(&cfg)
	}
	logger := logging.NewLogger("docprep", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap error: %w", err)
	}
	return app, nil
}
