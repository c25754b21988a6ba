package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"cardscan/internal/api"
	"cardscan/internal/config"
	"cardscan/internal/preflight"
)

// statusReport is the JSON shape of `cardscan status --json`.
type statusReport struct {
	ServerURL string             `json:"server_url"`
	Reachable bool               `json:"reachable"`
	Server    *api.Status        `json:"server,omitempty"`
	Error     string             `json:"error,omitempty"`
	Pending   int                `json:"pending"`
	Checks    []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server, ledger, and provider status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			probe := preflight.ProbeServer(cmd.Context(), client, ctx.serverURL())
			checks := preflight.RunAll(cmd.Context(), cfg)
			pending, err := loadPending(cfg.PendingPath())
			if err != nil {
				return err
			}

			if asJSON {
				report := statusReport{
					ServerURL: probe.URL,
					Reachable: probe.Reachable,
					Pending:   len(pending),
					Checks:    checks,
				}
				if probe.Reachable {
					status := probe.Status
					report.Server = &status
				} else if probe.Err != nil {
					report.Error = probe.Err.Error()
				}
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			renderStatus(out, cfg, probe, checks, len(pending), shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output status as JSON")
	return cmd
}

func renderStatus(out io.Writer, cfg *config.Config, probe preflight.ServerProbe, checks []preflight.Result, pending int, colorize bool) {
	for _, line := range renderSectionHeader("Server", colorize) {
		fmt.Fprintln(out, line)
	}
	if !probe.Reachable {
		fmt.Fprintln(out, renderStatusLine("cardscand", statusError, probe.ServerDetail(), colorize))
	} else {
		st := probe.Status
		fmt.Fprintln(out, renderStatusLine("cardscand", statusOK, probe.ServerDetail(), colorize))
		if st.Version != "" {
			fmt.Fprintln(out, renderStatusLine("Version", statusInfo, st.Version, colorize))
		}
		fmt.Fprintln(out, renderStatusLine("Ledger", statusInfo, fmt.Sprintf("%s (%s)", st.LedgerPath, st.LedgerBackend), colorize))
		fmt.Fprintln(out, renderStatusLine("Collection", statusInfo, fmt.Sprintf("%d rows, %d cards", st.LedgerRows, st.LedgerCards), colorize))
		fmt.Fprintln(out, renderStatusLine("Batch limit", statusInfo, strconv.Itoa(st.MaxBatchSize), colorize))
		visionKind := statusOK
		if !st.VisionConfigured {
			visionKind = statusError
		}
		fmt.Fprintln(out, renderStatusLine("Vision configured", visionKind, yesNo(st.VisionConfigured), colorize))
		cacheDetail := yesNo(st.CacheEnabled)
		if st.CacheEnabled {
			cacheDetail = fmt.Sprintf("yes (%d entries)", st.CacheEntries)
		}
		fmt.Fprintln(out, renderStatusLine("Lookup cache", statusInfo, cacheDetail, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Local Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Review", colorize) {
		fmt.Fprintln(out, line)
	}
	kind := statusInfo
	if pending > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Pending cards", kind, fmt.Sprintf("%d (%s)", pending, cfg.PendingPath()), colorize))
}
