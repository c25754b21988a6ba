package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cardscan/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var grep []string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the server log",
		Example: "  cardscan logs -n 100\n" +
			"  cardscan logs -f --grep warn --grep component=scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configValue().LogPath()
			out := cmd.OutOrStdout()
			emit := func(batch []string) error {
				for _, line := range logs.Match(batch, grep...) {
					fmt.Fprintln(out, line)
				}
				return nil
			}

			chunk, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			if chunk.Offset == 0 && !follow {
				fmt.Fprintf(out, "No log output yet (%s)\n", path)
				return nil
			}
			_ = emit(chunk.Lines)
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, chunk.Offset, 0, emit)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringArrayVar(&grep, "grep", nil, "Only show lines containing this text (repeatable, case-insensitive)")
	return cmd
}
