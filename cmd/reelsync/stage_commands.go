package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reelsync/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Reconcile the catalog and acquire every missing item",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			report, err := client.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printReconcileReport(out, &report.Reconcile)
			printAcquireReport(out, &report.Acquire)
			return nil
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Match the scraped catalog against remote storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			report, err := client.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			printReconcileReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newAcquireCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "acquire",
		Short: "Work through the pending queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			report, err := client.Acquire(cmd.Context())
			if err != nil {
				return err
			}
			printAcquireReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printReconcileReport(out io.Writer, report *runner.ReconcileReport) {
	fmt.Fprintf(out, "Reconciliation %s\n", report.RunID)
	fmt.Fprintln(out, renderTable(
		[]string{"Catalog", "Pool", "Matched", "Missing"},
		[][]string{{
			fmt.Sprintf("%d", report.CatalogSize),
			fmt.Sprintf("%d", report.PoolSize),
			fmt.Sprintf("%d", report.Matched),
			fmt.Sprintf("%d", report.Missing),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	))
}

func printAcquireReport(out io.Writer, report *runner.AcquireReport) {
	fmt.Fprintf(out, "Acquisition %s\n", report.RunID)
	fmt.Fprintln(out, renderTable(
		[]string{"Attempted", "Succeeded", "Failed"},
		[][]string{{
			fmt.Sprintf("%d", report.Attempted),
			fmt.Sprintf("%d", report.Succeeded),
			fmt.Sprintf("%d", report.Failed),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight},
	))
}
