package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newJobsCommand(cliCtx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage analysis jobs",
	}
	cmd.AddCommand(newJobsListCommand(cliCtx))
	cmd.AddCommand(newJobsShowCommand(cliCtx))
	cmd.AddCommand(newJobsCancelCommand(cliCtx))
	cmd.AddCommand(newJobsRemoveCommand(cliCtx))
	cmd.AddCommand(newHealthCommand(cliCtx))
	return cmd
}

func newJobsListCommand(cliCtx *cliContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(cliCtx.cfg)
			list, err := client.listJobs(statuses)
			if err != nil {
				return err
			}
			if len(list.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"ID", "File", "Status", "Progress", "Message"})
			for _, job := range list.Jobs {
				message := job.Message
				if job.Error != "" {
					message = job.Error
				}
				tw.AppendRow(table.Row{
					shortID(job.ID),
					job.SourceFilename,
					job.Status,
					fmt.Sprintf("%3.0f%%", job.Progress*100),
					message,
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable)")
	return cmd
}

func newJobsShowCommand(cliCtx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(cliCtx.cfg)
			job, err := client.getJob(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %s\n", job.ID)
			fmt.Fprintf(out, "file:     %s\n", job.SourceFilename)
			fmt.Fprintf(out, "status:   %s\n", job.Status)
			fmt.Fprintf(out, "progress: %.0f%%\n", job.Progress*100)
			if job.Message != "" {
				fmt.Fprintf(out, "message:  %s\n", job.Message)
			}
			if job.Error != "" {
				fmt.Fprintf(out, "error:    %s\n", job.Error)
			}
			if result := job.Result; result != nil {
				fmt.Fprintf(out, "duration: %.2fs kept %.2fs removed %.2fs\n",
					result.DurationSeconds, result.TotalKeptSeconds, result.TotalRemovedSeconds)
				fmt.Fprintf(out, "cuts:     %d (silences %d, fillers %d)\n",
					result.CutCount, result.SilenceCount, result.FillerCount)
				for _, link := range []string{result.LegacyXMLURL, result.StructuralXMLURL, result.SRTURL, result.VTTURL, result.TXTURL} {
					if link != "" {
						fmt.Fprintf(out, "download: %s\n", link)
					}
				}
			}
			return nil
		},
	}
}

func newJobsCancelCommand(cliCtx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(cliCtx.cfg)
			if err := client.cancelJob(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cancellation requested")
			return nil
		},
	}
}

func newJobsRemoveCommand(cliCtx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Remove a terminal job and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(cliCtx.cfg)
			if err := client.removeJob(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "job removed")
			return nil
		},
	}
}

func newHealthCommand(cliCtx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show daemon and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(cliCtx.cfg)
			health, err := client.health()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %s\n", health.Status)
			for _, dep := range health.Dependencies {
				state := "missing"
				if dep.Available {
					state = "ok"
				}
				optional := ""
				if dep.Optional {
					optional = " (optional)"
				}
				fmt.Fprintf(out, "  %-12s %-8s %s%s\n", dep.Name, state, dep.Command, optional)
			}
			if len(health.Jobs) > 0 {
				parts := make([]string, 0, len(health.Jobs))
				for status, count := range health.Jobs {
					parts = append(parts, fmt.Sprintf("%s=%d", status, count))
				}
				fmt.Fprintf(out, "jobs: %s\n", strings.Join(parts, " "))
			}
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
