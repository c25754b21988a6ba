// Package mcptools exposes the card server to MCP clients over stdio. Every
// tool proxies to a running cardscand through the HTTP API client.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cardscan/internal/api"
	"cardscan/internal/card"
)

// Client is the server API surface the tools call.
type Client interface {
	Scan(ctx context.Context, paths []string) (api.ScanResponse, error)
	Confirm(ctx context.Context, cards []card.Record) ([]api.MergeResult, error)
	Cards(ctx context.Context, filter map[string]string) ([]card.Record, error)
	Status(ctx context.Context) (api.Status, error)
}

// NewServer builds an MCP server with every card tool registered.
func NewServer(client Client, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"cardscan",
		version,
		server.WithToolCapabilities(true),
	)
	Register(s, client)
	return s
}

// Register adds the card tools to s.
func Register(s *server.MCPServer, client Client) {
	s.AddTool(scanTool(), scanHandler(client))
	s.AddTool(listTool(), listHandler(client))
	s.AddTool(addTool(), addHandler(client))
	s.AddTool(statusTool(), statusHandler(client))
}

// --- scan_images ---

func scanTool() mcp.Tool {
	return mcp.NewTool("scan_images",
		mcp.WithDescription("Recognize and resolve card photos. Returns one outcome per image in submission order; nothing is written to the ledger."),
		mcp.WithString("paths",
			mcp.Description("Image file paths, separated by commas or newlines"),
			mcp.Required(),
		),
	)
}

func scanHandler(client Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths := splitList(req.GetString("paths", ""))
		if len(paths) == 0 {
			return toolError(fmt.Errorf("paths is required"))
		}
		resp, err := client.Scan(ctx, paths)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(resp)
	}
}

// --- list_cards ---

func listTool() mcp.Tool {
	return mcp.NewTool("list_cards",
		mcp.WithDescription("List collection ledger rows. Optional filter of column=value pairs; every pair must match exactly."),
		mcp.WithString("filter",
			mcp.Description("Comma-separated column=value pairs (e.g. colour=G,power=2). Omit to list everything."),
		),
	)
}

func listHandler(client Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter, err := ParseFilter(splitList(req.GetString("filter", "")))
		if err != nil {
			return toolError(err)
		}
		rows, err := client.Cards(ctx, filter)
		if err != nil {
			return toolError(err)
		}
		if len(rows) == 0 {
			return mcp.NewToolResultText("No cards."), nil
		}
		return jsonResult(rows)
	}
}

// --- add_cards ---

func addTool() mcp.Tool {
	return mcp.NewTool("add_cards",
		mcp.WithDescription("Merge confirmed cards into the ledger. Each card must carry name, type, colour, and mana_cost keys (values may be null). Existing names have their quantity incremented."),
		mcp.WithString("cards",
			mcp.Description("JSON array of card objects"),
			mcp.Required(),
		),
	)
}

func addHandler(client Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw := strings.TrimSpace(req.GetString("cards", ""))
		if raw == "" {
			return toolError(fmt.Errorf("cards is required"))
		}
		var candidates []card.Candidate
		if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
			return toolError(fmt.Errorf("cards must be a JSON array of objects: %w", err))
		}
		records := make([]card.Record, 0, len(candidates))
		for i, c := range candidates {
			if _, err := card.Validate(c); err != nil {
				return toolError(fmt.Errorf("card %d: %w", i, err))
			}
			records = append(records, c.Record)
		}
		results, err := client.Confirm(ctx, records)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(results)
	}
}

// --- server_status ---

func statusTool() mcp.Tool {
	return mcp.NewTool("server_status",
		mcp.WithDescription("Report the card server's ledger location, totals, and batch limit."),
	)
}

func statusHandler(client Client) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, err := client.Status(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(status)
	}
}

// ParseFilter turns column=value pairs into a filter map.
func ParseFilter(pairs []string) (map[string]string, error) {
	filter := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		column, value, ok := strings.Cut(pair, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid filter %q (want column=value)", pair)
		}
		if !card.IsColumn(column) {
			return nil, fmt.Errorf("unknown column %q (want one of %s)", column, strings.Join(sortedColumns(), ", "))
		}
		filter[column] = strings.TrimSpace(value)
	}
	return filter, nil
}

func sortedColumns() []string {
	cols := append([]string(nil), card.Columns...)
	sort.Strings(cols)
	return cols
}

func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
