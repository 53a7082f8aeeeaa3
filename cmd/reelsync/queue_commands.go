package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsync/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the acquisition queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var statuses []string
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				statuses = strings.Split(trimmed, ",")
			}
			items, err := client.QueueList(cmd.Context(), statuses)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					fmt.Sprintf("%d", item.ID),
					item.Title,
					string(item.Status),
					fmt.Sprintf("%d", item.Attempts),
					fmt.Sprintf("%.2f", item.MatchScore),
					item.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Status", "Attempts", "Score", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (e.g. pending,upload_failed)")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var itemURL, imageURL, source string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Enqueue one item manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			item, err := client.QueueAdd(cmd.Context(), api.QueueAddRequest{
				Title:    args[0],
				URL:      itemURL,
				ImageURL: imageURL,
				Source:   source,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued item %d (%s) as %s\n", item.ID, item.Title, item.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&itemURL, "url", "", "Catalog page URL of the item")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "Poster image URL")
	cmd.Flags().StringVar(&source, "source", "manual", "Source label recorded on the item")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var failedOnly, succeededOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if failedOnly && succeededOnly {
				return fmt.Errorf("--failed and --succeeded are mutually exclusive")
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var affected int64
			switch {
			case failedOnly:
				affected, err = client.QueueClearFailed(cmd.Context())
			case succeededOnly:
				affected, err = client.QueueClearSucceeded(cmd.Context())
			default:
				affected, err = client.QueueClear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", affected)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Remove only terminally failed items")
	cmd.Flags().BoolVar(&succeededOnly, "succeeded", false, "Remove only succeeded items")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Roll items stuck mid-acquisition back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			affected, err := client.QueueReset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d item(s) to pending\n", affected)
			return nil
		},
	}
}
