// Package resolver turns a recognized card name into a full card record.
//
// Resolve delegates fuzzy matching to the card database, then Normalize maps
// the provider's card object onto the ledger's columns. Failures keep their
// classification: a database miss is services.ErrCardNotFound and is final,
// while transport or provider faults are services.ErrProviderUnavailable and
// may succeed on a later attempt.
package resolver
