// Package recognition extracts a candidate card name from a card photo using
// the Google Cloud Vision text detection REST API.
//
// The candidate is the first line of the first text annotation, normalized to
// NFC with whitespace collapsed. No other validation is applied; fuzzy
// matching is left to the card database. Requests authenticate with either an
// API key or a service-account credentials file.
package recognition
