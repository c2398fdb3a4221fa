package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newCardCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "card <note-id>",
		Short: "Download the share card PNG for a public note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noteID := strings.TrimSpace(args[0])
			data, err := ctx.apiClient().ShareCard(cmd.Context(), noteID)
			if err != nil {
				return err
			}
			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = noteID + ".png"
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return fmt.Errorf("write card image: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote share card to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (defaults to <note-id>.png)")
	return cmd
}
