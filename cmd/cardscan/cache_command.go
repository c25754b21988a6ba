package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardscan/internal/api"
	"cardscan/internal/apiclient"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the server's card lookup cache",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached card lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.CacheListResponse
			err := ctx.withClient(func(client *apiclient.Client) error {
				var listErr error
				resp, listErr = client.CacheEntries(cmd.Context())
				return listErr
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if !resp.Enabled {
				fmt.Fprintln(out, "Lookup cache is disabled")
				return nil
			}
			if len(resp.Entries) == 0 {
				fmt.Fprintf(out, "Lookup cache is empty (%s)\n", resp.Path)
				return nil
			}
			rows := make([][]string, 0, len(resp.Entries))
			for _, e := range resp.Entries {
				rows = append(rows, []string{e.Query, e.CardName, e.CachedAt})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Query", "Card", "Cached"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d entries in %s\n", len(resp.Entries), resp.Path)
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Output cache entries as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached card lookup",
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed int
			err := ctx.withClient(func(client *apiclient.Client) error {
				var clearErr error
				removed, clearErr = client.ClearCache(cmd.Context())
				return clearErr
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached lookups\n", removed)
			return nil
		},
	}

	cacheCmd.AddCommand(listCmd, clearCmd)
	return cacheCmd
}
