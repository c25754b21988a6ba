// Package config loads, normalizes, and validates cardscan configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the environment variables the
// scanner has always used (CSV_PATH, MAX_BATCH_SIZE, SCRYFALL_API_URL,
// GOOGLE_APPLICATION_CREDENTIALS, API_HOST, API_PORT, ...). The Config type
// centralizes every knob the server and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
