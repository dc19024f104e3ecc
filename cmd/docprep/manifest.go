package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docprep/internal/config"
)

type remoteFlags struct {
	bucket string
	prefix string
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bucket, "remote-bucket", "", "publish manifest, documents and text to this bucket")
	cmd.Flags().StringVar(&f.prefix, "remote-prefix", "", "key prefix inside the remote bucket")
}

func (f *remoteFlags) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("remote-bucket") {
			cfg.RemoteBucket = f.bucket
		}
		if cmd.Flags().Changed("remote-prefix") {
			cfg.RemotePrefix = f.prefix
		}
	}
}

func manifestCmd() *cobra.Command {
	var remote remoteFlags

	cmd := &cobra.Command{
		Use:   "manifest <folder>",
		Short: "Build manifest.yaml for one folder of processed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), remote.apply(cmd))
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := app.Manifests.BuildFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(summary, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	remote.register(cmd)
	return cmd
}

func prepareCmd() *cobra.Command {
	var remote remoteFlags

	cmd := &cobra.Command{
		Use:   "prepare <agency-dir>",
		Short: "Build manifests for every dated release folder of an agency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), remote.apply(cmd))
			if err != nil {
				return err
			}
			defer app.Close()

			summaries, err := app.Manifests.PrepareAgency(cmd.Context(), args[0])
			b, _ := json.MarshalIndent(summaries, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	remote.register(cmd)
	return cmd
}
