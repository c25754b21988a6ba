// Package card defines the normalized card record shared by the scan
// pipeline, the ledger, and the HTTP API.
//
// Record carries the ten collection columns in their fixed persisted order.
// Candidate wraps a Record decoded from client JSON and remembers which keys
// were actually supplied, so ledger validation can tell an absent field from
// an explicit null.
package card
