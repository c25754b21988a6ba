// Package scryfall provides the minimal Scryfall API client used to resolve
// recognized card names.
//
// Only the fuzzy named-card endpoint is exposed. Responses are decoded into
// the subset of card fields the collection ledger stores. A 404 maps to
// services.ErrCardNotFound; every other failure (transport, 5xx, rate limit,
// malformed payload) maps to services.ErrProviderUnavailable so callers can
// tell terminal misses from transient faults.
package scryfall
