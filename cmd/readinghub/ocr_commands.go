package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"readinghub/internal/api"
	"readinghub/internal/notes"
	"readinghub/internal/watch"
)

func newOCRCommand(ctx *commandContext) *cobra.Command {
	ocrCmd := &cobra.Command{
		Use:   "ocr",
		Short: "Drive the OCR reconciliation pipeline",
	}

	ocrCmd.AddCommand(newOCRRunCommand(ctx))
	ocrCmd.AddCommand(newOCRPendingCommand(ctx))
	ocrCmd.AddCommand(newOCRRetryCommand(ctx))
	ocrCmd.AddCommand(newOCRWatchCommand(ctx))
	ocrCmd.AddCommand(newOCRStatsCommand(ctx))
	ocrCmd.AddCommand(newOCRLogsCommand(ctx))

	return ocrCmd
}

func newOCRRunCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var follow bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one OCR batch over pending notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.apiClient().RunBatch(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			printBatchResult(cmd, result)
			if !follow || len(result.Items) == 0 {
				return nil
			}
			ids := make([]string, 0, len(result.Items))
			for _, item := range result.Items {
				ids = append(ids, item.NoteID)
			}
			return watchNotes(cmd, ctx, ids)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum notes to process (0 uses the configured batch size)")
	cmd.Flags().BoolVar(&follow, "watch", false, "Poll transcription statuses after the batch")
	return cmd
}

func newOCRPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Count notes awaiting transcription",
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := ctx.apiClient().PendingCount(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.PendingResponse{Pending: pending})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d notes awaiting transcription\n", pending)
			return nil
		},
	}
}

func newOCRRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [note-id...]",
		Short: "Reset failed transcriptions and reprocess them",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.apiClient().Retry(cmd.Context(), args)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			printBatchResult(cmd, result)
			return nil
		},
	}
}

func newOCRWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <note-id> [note-id...]",
		Short: "Poll transcription statuses until they settle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchNotes(cmd, ctx, args)
		},
	}
}

func watchNotes(cmd *cobra.Command, ctx *commandContext, noteIDs []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	source := clientStatusSource{ctx: ctx}
	out := cmd.OutOrStdout()
	watcher := watch.NewWatcher(source, noteIDs, nil,
		watch.WithInterval(cfg.OCRPollInterval()),
		watch.WithOnUpdate(func(snapshot map[string]notes.OCRStatus) {
			for _, id := range noteIDs {
				fmt.Fprintf(out, "%s\t%s\n", id, snapshot[id])
			}
			fmt.Fprintln(out)
		}))
	if err := watcher.Run(cmd.Context()); err != nil {
		return err
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, watcher.Snapshot())
	}
	fmt.Fprintln(out, "all transcriptions settled")
	return nil
}

// clientStatusSource adapts the daemon API client to the watch package.
type clientStatusSource struct {
	ctx *commandContext
}

func (s clientStatusSource) TranscriptionStatuses(ctx context.Context, noteIDs []string) (map[string]notes.OCRStatus, error) {
	raw, err := s.ctx.apiClient().TranscriptionStatuses(ctx, noteIDs)
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]notes.OCRStatus, len(raw))
	for id, value := range raw {
		statuses[id] = notes.OCRStatus(value)
	}
	return statuses, nil
}

func newOCRStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-user OCR usage counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := ctx.apiClient().UsageStats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.UsageStatsResponse{Stats: stats})
			}
			if len(stats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No OCR usage recorded")
				return nil
			}
			rows := make([][]string, 0, len(stats))
			for _, stat := range stats {
				rows = append(rows, []string{
					stat.UserID,
					strconv.FormatInt(stat.SuccessCount, 10),
					strconv.FormatInt(stat.FailureCount, 10),
					orDash(stat.LastProcessedAt),
				})
			}
			table := renderTable(
				[]string{"User", "Succeeded", "Failed", "Last Processed"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newOCRLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent OCR processing log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := ctx.apiClient().Logs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.LogListResponse{Logs: entries})
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No OCR log entries")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.NoteID,
					entry.Status,
					strconv.FormatInt(entry.DurationMS, 10),
					truncate(orDash(entry.ErrorMessage), 48),
					entry.CreatedAt,
				})
			}
			table := renderTable(
				[]string{"ID", "Note", "Status", "ms", "Error", "At"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum log entries to fetch")
	return cmd
}

func printBatchResult(cmd *cobra.Command, result *api.BatchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Message)
	if len(result.Items) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		rows = append(rows, []string{item.NoteID, item.Status, orDash(item.Message)})
	}
	table := renderTable(
		[]string{"Note", "Status", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprintln(out, table)
}
