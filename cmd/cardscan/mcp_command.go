package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"cardscan/internal/mcptools"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the card tools to an MCP client over stdio",
		Long: "Starts a Model Context Protocol server on stdin/stdout. Tools proxy to a\n" +
			"running cardscand, so start it first with `cardscan server start`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			return server.ServeStdio(mcptools.NewServer(client, version))
		},
	}
}
