package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cardscan/internal/api"
	"cardscan/internal/apiclient"
	"cardscan/internal/card"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var noSave bool

	cmd := &cobra.Command{
		Use:   "scan <image>...",
		Short: "Recognize card photos and queue the matches for review",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			var resp api.ScanResponse
			err := ctx.withClient(func(client *apiclient.Client) error {
				var scanErr error
				resp, scanErr = client.Scan(cmd.Context(), args)
				return scanErr
			})
			if err != nil {
				return err
			}

			queued := 0
			if !noSave {
				if queued, err = appendPending(cfg.PendingPath(), resp); err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "File", "Status", "Card", "Score"},
				scanRows(resp.Outcomes, shouldColorize(out)),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d of %d images resolved (request %s)\n", len(resp.Outcomes)-resp.Failed, resp.Submitted, resp.RequestID)
			if queued > 0 {
				fmt.Fprintf(out, "Queued %d cards for review; run `cardscan review` then `cardscan confirm`\n", queued)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the scan response as JSON")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not add resolved cards to the review list")
	return cmd
}

func scanRows(outcomes []api.ScanOutcome, colorize bool) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		name := o.Candidate
		if o.Card != nil {
			name = o.Card.Name
		}
		if name == "" && o.Error != "" {
			name = o.Error
		}
		score := ""
		if o.MatchScore > 0 {
			score = strconv.FormatFloat(o.MatchScore, 'f', 2, 64)
		}
		status := o.Status
		if o.Retryable {
			status += " (retry)"
		}
		rows = append(rows, []string{
			strconv.Itoa(o.Index + 1),
			o.Filename,
			paint(statusKindColor(outcomeKind(o.Status)), status, colorize),
			name,
			score,
		})
	}
	return rows
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Show scanned cards awaiting confirmation",
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := loadPending(ctx.configValue().PendingPath())
			if err != nil {
				return err
			}
			if asJSON {
				if pending == nil {
					pending = []pendingCard{}
				}
				return writeJSON(cmd, pending)
			}
			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintln(out, "No cards awaiting review")
				return nil
			}
			rows := make([][]string, 0, len(pending))
			for i, p := range pending {
				note := p.Source
				if p.LastError != "" {
					note = paint(statusKindColor(statusError), p.LastError, shouldColorize(out))
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					p.Card.Name,
					p.Card.Type,
					p.Card.Colour,
					p.Card.Field(card.ColumnManaCost),
					powerToughness(p.Card),
					note,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Name", "Type", "Colour", "Mana", "P/T", "Source"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d cards pending; confirm with `cardscan confirm [--exclude 2,3]`\n", len(pending))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output pending cards as JSON")
	return cmd
}

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	var exclude string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Add reviewed cards to the collection ledger",
		Long: "Confirm sends every pending card to the server and merges it into the ledger.\n" +
			"Cards listed with --exclude (positions from `cardscan review`) are discarded.\n" +
			"Cards the server rejects stay pending with the failure noted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configValue().PendingPath()
			pending, err := loadPending(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintln(out, "No cards awaiting review")
				return nil
			}

			excluded, err := parseSelection(exclude, len(pending))
			if err != nil {
				return fmt.Errorf("--exclude: %w", err)
			}
			selected := make([]pendingCard, 0, len(pending))
			for i, p := range pending {
				if !excluded[i] {
					selected = append(selected, p)
				}
			}

			var results []api.MergeResult
			var confirmErr error
			if len(selected) > 0 {
				confirmErr = ctx.withClient(func(client *apiclient.Client) error {
					var err error
					results, err = confirmInBatches(cmd.Context(), client, selected)
					return err
				})
			}
			if confirmErr != nil && len(results) == 0 {
				return confirmErr
			}

			remaining, added := settlePending(selected, results, confirmErr)
			if err := savePending(path, remaining); err != nil {
				return err
			}
			if confirmErr != nil {
				if asJSON {
					return confirmErr
				}
				fmt.Fprintf(out, "Added %d cards before the failure; %d remain pending\n", added, len(remaining))
				return confirmErr
			}

			if asJSON {
				return writeJSON(cmd, results)
			}
			if len(results) > 0 {
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Name", "Quantity", "Result"},
					mergeRows(selected, results, shouldColorize(out)),
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				))
			}
			fmt.Fprintf(out, "Added %d cards", added)
			if len(excluded) > 0 {
				fmt.Fprintf(out, ", discarded %d", len(excluded))
			}
			if len(remaining) > 0 {
				fmt.Fprintf(out, ", %d failed and remain pending", len(remaining))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&exclude, "exclude", "", "Positions to discard instead of confirming (e.g. 2,4-6)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output merge results as JSON")
	return cmd
}

type confirmClient interface {
	Status(ctx context.Context) (api.Status, error)
	Confirm(ctx context.Context, cards []card.Record) ([]api.MergeResult, error)
}

// confirmInBatches splits the cards to respect the server's batch limit and
// returns results indexed against cards. When a chunk fails the results of
// the chunks already merged are returned with the error.
func confirmInBatches(ctx context.Context, client confirmClient, cards []pendingCard) ([]api.MergeResult, error) {
	status, err := client.Status(ctx)
	if err != nil {
		return nil, err
	}
	size := status.MaxBatchSize
	if size <= 0 {
		size = len(cards)
	}

	results := make([]api.MergeResult, 0, len(cards))
	for start := 0; start < len(cards); start += size {
		end := min(start+size, len(cards))
		records := make([]card.Record, 0, end-start)
		for _, p := range cards[start:end] {
			records = append(records, p.Card)
		}
		batch, err := client.Confirm(ctx, records)
		if err != nil {
			return results, err
		}
		if len(batch) != len(records) {
			return results, errors.New("server returned a mismatched number of merge results")
		}
		for _, r := range batch {
			r.Index += start
			results = append(results, r)
		}
	}
	return results, nil
}

// settlePending returns the cards that stay pending after a confirm and the
// number added. Cards past the end of results were never merged; they keep
// the failure that stopped the run.
func settlePending(selected []pendingCard, results []api.MergeResult, failure error) ([]pendingCard, int) {
	var remaining []pendingCard
	added := 0
	for i, p := range selected {
		switch {
		case i >= len(results):
			if failure != nil {
				p.LastError = failure.Error()
			}
			remaining = append(remaining, p)
		case results[i].Error == "":
			added++
		default:
			p.LastError = results[i].Error
			remaining = append(remaining, p)
		}
	}
	return remaining, added
}

func mergeRows(cards []pendingCard, results []api.MergeResult, colorize bool) [][]string {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		name := cards[i].Card.Name
		qty := ""
		status := "added"
		if r.Card != nil {
			qty = strconv.Itoa(r.Card.Quantity)
		}
		if r.Error != "" {
			status = r.Error
		}
		kind := outcomeKind("added")
		if r.Error != "" {
			kind = statusError
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			name,
			qty,
			paint(statusKindColor(kind), status, colorize),
		})
	}
	return rows
}

func powerToughness(rec card.Record) string {
	if rec.Power == nil && rec.Toughness == nil {
		return ""
	}
	return rec.Field(card.ColumnPower) + "/" + rec.Field(card.ColumnToughness)
}
