// Package main hosts the cardscan CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into HTTP calls against
// cardscand: scanning photos into a local review list, confirming reviewed
// cards into the ledger, querying the ledger, and managing the lookup cache.
// It also launches and stops the server process and serves the same API to
// MCP clients over stdio.
//
// Keep this package thin. New behavior belongs in the internal packages first
// and is surfaced here through commands or flags.
package main
