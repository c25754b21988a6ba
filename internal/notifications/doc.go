// Package notifications publishes scan and ledger events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers always hold a usable Service. Delivery failures are returned to the
// caller, which logs them; they never fail the request that triggered them.
package notifications
