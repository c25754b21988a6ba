// Package api defines the wire-format types, converters, and the card
// service shared by the HTTP server and its clients.
//
// # Key Types
//
// ScanResponse: correlation ID plus one ScanOutcome per submitted image, in
// submission order.
//
// MergeResult: per-record result of a confirm (add-batch) request.
//
// Status: server runtime information (ledger location, batch limit, provider
// readiness).
//
// # Service
//
// CardService wires the scan pipeline and the ledger behind the batch gate so
// transports only decode requests and encode results.
//
// # Design Notes
//
// Card records travel as card.Record with the ledger's snake_case column
// names. Errors are flattened to a message plus the services.Kind
// classification so clients can tell retryable failures from final ones
// without parsing messages.
package api
