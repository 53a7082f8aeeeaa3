package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running: %s (pid %d)\n", yesNo(status.Running), status.PID)
			fmt.Fprintf(out, "Provider:       %s\n", status.Provider)
			fmt.Fprintf(out, "Queue database: %s\n", status.QueueDBPath)
			fmt.Fprintf(out, "Lock file:      %s\n", status.LockFilePath)
			fmt.Fprintln(out, renderTable(
				[]string{"Total", "Pending", "Matched", "Processing", "Succeeded", "Failed"},
				[][]string{{
					fmt.Sprintf("%d", status.Queue.Total),
					fmt.Sprintf("%d", status.Queue.Pending),
					fmt.Sprintf("%d", status.Queue.Matched),
					fmt.Sprintf("%d", status.Queue.Processing),
					fmt.Sprintf("%d", status.Queue.Succeeded),
					fmt.Sprintf("%d", status.Queue.Failed),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check storage backend and queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:            %s\n", health.Status)
			fmt.Fprintf(out, "Provider:          %s\n", health.Provider)
			fmt.Fprintf(out, "Storage reachable: %s\n", yesNo(health.StorageReachable))
			fmt.Fprintf(out, "Queue:             %d total, %d pending, %d failed\n",
				health.QueueTotal, health.QueuePending, health.QueueFailed)
			if health.Status != "ok" {
				return fmt.Errorf("daemon reports %s", health.Status)
			}
			return nil
		},
	}
}
