package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autocut/internal/config"
)

// version is stamped at build time.
var version = "dev"

type cliContext struct {
	configPath string
	cfg        *config.Config
}

func (c *cliContext) load() error {
	cfg, _, _, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func newRootCommand() *cobra.Command {
	cliCtx := &cliContext{}

	root := &cobra.Command{
		Use:           "autocut",
		Short:         "Operate the autocut daemon",
		Long:          "autocut inspects and manages the automatic video editing daemon: job listing, cancellation, and configuration.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cliCtx.load()
		},
	}
	root.PersistentFlags().StringVar(&cliCtx.configPath, "config", "", "path to the configuration file")

	root.AddCommand(newJobsCommand(cliCtx))
	root.AddCommand(newConfigCommand(cliCtx))
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		// Version printing must not require a readable config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "autocut "+version)
		},
	}
}
