package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docprep/internal/config"
	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

func convertCmd() *cobra.Command {
	var force bool
	var concurrency int
	var threshold int

	cmd := &cobra.Command{
		Use:   "convert <prefix>",
		Short: "Extract text and metadata for every document under a store prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			app, err := openApp(cmd.Context(), func(cfg *config.Config) {
				if cmd.Flags().Changed("concurrency") {
					cfg.MaxConcurrency = concurrency
				}
				if cmd.Flags().Changed("threshold") {
					cfg.WordThreshold = threshold
				}
			})
			if err != nil {
				return err
			}
			defer app.Close()

			docs, err := app.Batches.Discover(cmd.Context(), prefix)
			if err != nil {
				return fmt.Errorf("discover documents: %w", err)
			}
			opts := ports.ProcessOptions{Force: force || !app.Config.SkipConverted}
			report, err := app.Batches.Run(cmd.Context(), docs, opts)
			if err != nil {
				return err
			}

			b, _ := json.MarshalIndent(report, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if failed := report.Counts[domain.OutcomeFailed]; failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(report.Results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-convert documents that already have a text artifact")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of documents processed at once")
	cmd.Flags().IntVar(&threshold, "threshold", 10, "minimum word count for extracted text to count as sufficient")
	return cmd
}
