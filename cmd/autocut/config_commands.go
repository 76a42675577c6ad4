package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autocut/internal/config"
)

func newConfigCommand(cliCtx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the daemon configuration",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand(cliCtx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		// Writing a sample must work without an existing config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := target
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sample configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "path", "", "destination for the sample file")
	return cmd
}

func newConfigShowCommand(cliCtx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cliCtx.cfg
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "upload_root:             %s\n", cfg.Paths.UploadRoot)
			fmt.Fprintf(out, "output_root:             %s\n", cfg.Paths.OutputRoot)
			fmt.Fprintf(out, "log_dir:                 %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "api_bind:                %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "max_upload_bytes:        %d\n", cfg.Limits.MaxUploadBytes)
			fmt.Fprintf(out, "max_concurrent_analyses: %d\n", cfg.Limits.MaxConcurrentAnalyses)
			fmt.Fprintf(out, "decoder_binary:          %s\n", cfg.Tools.DecoderBinary)
			fmt.Fprintf(out, "ffprobe_binary:          %s\n", cfg.Tools.FFprobeBinary)
			fmt.Fprintf(out, "transcriber_binary:      %s\n", cfg.Tools.TranscriberBinary)
			fmt.Fprintf(out, "silence_threshold_db:    %d\n", cfg.Analysis.SilenceThresholdDB)
			fmt.Fprintf(out, "min_silence_ms:          %d\n", cfg.Analysis.MinSilenceMs)
			fmt.Fprintf(out, "padding_ms:              %d\n", cfg.Analysis.PaddingMs)
			fmt.Fprintf(out, "fps:                     %g\n", cfg.Analysis.FPS)
			return nil
		},
	}
}
