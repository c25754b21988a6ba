package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cardscan/internal/apiclient"
	"cardscan/internal/card"
	"cardscan/internal/mcptools"
)

// listFixedWidth approximates the table width taken by every column except
// oracle text.
const listFixedWidth = 90

func newListCommand(ctx *commandContext) *cobra.Command {
	var filters []string
	var asJSON bool
	var wide bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards in the collection ledger",
		Example: "  cardscan list\n" +
			"  cardscan list --filter colour=G --filter type=\"Basic Land\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := mcptools.ParseFilter(filters)
			if err != nil {
				return err
			}
			var rows []card.Record
			err = ctx.withClient(func(client *apiclient.Client) error {
				var listErr error
				rows, listErr = client.Cards(cmd.Context(), filter)
				return listErr
			})
			if err != nil {
				return err
			}
			if asJSON {
				if rows == nil {
					rows = []card.Record{}
				}
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No cards")
				return nil
			}
			headers := []string{"Name", "Type", "Colour", "Mana", "P/T", "Qty"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}
			if wide {
				headers = append(headers, "Oracle Text")
				aligns = append(aligns, alignLeft)
			}
			total := 0
			tableRows := make([][]string, 0, len(rows))
			for _, rec := range rows {
				row := []string{
					rec.Name,
					rec.Type,
					rec.Colour,
					rec.Field(card.ColumnManaCost),
					powerToughness(rec),
					strconv.Itoa(rec.Quantity),
				}
				if wide {
					row = append(row, rec.OracleText)
				}
				tableRows = append(tableRows, row)
				total += rec.Quantity
			}
			wrapColumn := -1
			if wide {
				wrapColumn = len(headers) - 1
			}
			fmt.Fprintln(out, renderWrappedTable(headers, tableRows, aligns, wrapColumn, wrapWidthFor(terminalWidth(out), listFixedWidth)))
			fmt.Fprintf(out, "%d rows, %d cards\n", len(rows), total)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Exact-match column=value filter (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output rows as JSON")
	cmd.Flags().BoolVar(&wide, "wide", false, "Include oracle text")
	return cmd
}
