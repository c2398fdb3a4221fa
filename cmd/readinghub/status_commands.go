package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.apiClient().Status(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			printHeading(out, "Reading Hub Daemon")
			fmt.Fprintf(out, "Running:   %s\n", yesNo(status.Running))
			fmt.Fprintf(out, "PID:       %d\n", status.PID)
			fmt.Fprintf(out, "Database:  %s\n", status.DatabasePath)
			fmt.Fprintf(out, "Lock file: %s\n", status.LockFilePath)
			fmt.Fprintf(out, "Pending:   %d\n", status.PendingOCR)
			rows := [][]string{
				{"pending", strconv.Itoa(status.Health.Pending)},
				{"processing", strconv.Itoa(status.Health.Processing)},
				{"completed", strconv.Itoa(status.Health.Completed)},
				{"failed", strconv.Itoa(status.Health.Failed)},
			}
			table := renderTable([]string{"Transcriptions", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show hub-wide aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := ctx.apiClient().SystemStats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}
			rows := [][]string{
				{"Users", strconv.Itoa(stats.Users)},
				{"Books", strconv.Itoa(stats.Books)},
				{"Notes", strconv.Itoa(stats.Notes)},
				{"New users (24h)", strconv.Itoa(stats.NewUsersToday)},
				{"New notes (24h)", strconv.Itoa(stats.NewNotesToday)},
			}
			table := renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.apiClient().TestNotification(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}
