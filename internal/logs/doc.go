// Package logs reads the cardscand log file for the CLI: the last N lines,
// lines appended since an offset, and a polling follow loop that survives
// truncation.
package logs
