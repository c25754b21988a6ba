// Package textutil provides text cleanup and comparison helpers for recognized
// card text.
//
// The primary use cases are:
//   - Reducing an OCR text block to a clean candidate line (NFC form, single
//     spaces, no control characters)
//   - Scoring how closely a recognized line matches a resolved card name, so
//     reviewers can spot suspicious fuzzy matches
package textutil
