// Package lookupcache provides a local cache that maps recognized card names
// to resolved card records.
//
// Rescanning a card the collection has already seen skips the card database
// round trip when the recognized text matches a cached key exactly (after
// case folding and whitespace cleanup).
//
// # Storage
//
// The cache is stored as a JSON file at a configurable path (default:
// ~/.cache/cardscan/lookups.json). The file is rewritten atomically on every
// change.
//
// # Usage
//
// The cache is disabled by default. Enable it in config.toml:
//
//	[cache]
//	enabled = true
//	path = "~/.cache/cardscan/lookups.json"
//
// CLI commands for inspection and management:
//
//	cardscan cache list     # List all cached lookups
//	cardscan cache clear    # Remove all entries
package lookupcache
