// Package services defines shared utilities consumed by the scan pipeline,
// the ledger, and the external provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation IDs, batch item
//     indexes, and stage names for logging.
//   - Structured error markers plus the Wrap helper that let callers tell a
//     terminal failure (no text, no such card, invalid record) from a
//     retryable provider fault.
//
// Use these helpers when wiring new provider or storage code so error
// classification stays uniform from the adapters up to the HTTP responses.
package services
