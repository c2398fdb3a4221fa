package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readinghub/internal/api"
	"readinghub/internal/client"
)

func newNotesCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var bookID string
	var noteType string
	var limit int

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List reading notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			listed, err := ctx.apiClient().Notes(cmd.Context(), client.NoteQuery{
				UserID: userID,
				BookID: bookID,
				Type:   noteType,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.NoteListResponse{Notes: listed})
			}
			if len(listed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes found")
				return nil
			}
			rows := make([][]string, 0, len(listed))
			for _, note := range listed {
				preview := note.Content
				if preview == "" {
					preview = note.ImageURL
				}
				rows = append(rows, []string{
					note.ID,
					note.Type,
					truncate(orDash(preview), 40),
					orDash(note.OCRStatus),
					yesNo(note.IsPublic),
					strings.Join(note.Tags, ","),
				})
			}
			table := renderTable(
				[]string{"ID", "Type", "Content", "OCR", "Public", "Tags"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Filter by user id")
	cmd.Flags().StringVar(&bookID, "book", "", "Filter by book id")
	cmd.Flags().StringVar(&noteType, "type", "", "Filter by note type (quote, photo, memo, transcription)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum notes to list")
	return cmd
}
