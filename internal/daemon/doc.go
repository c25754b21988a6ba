// Package daemon owns the long-running cardscand process.
//
// It takes the single-instance lock so two servers never share a ledger,
// starts and stops the HTTP API server, and reports runtime status. Scan and
// ledger semantics live in their own packages; the daemon only wires the
// card service onto routes and manages lifecycle.
package daemon
