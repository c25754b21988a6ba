// Package scan runs recognition and resolution for a batch of card photos.
//
// ScanBatch rejects oversize batches before any provider call, then fans out
// one recognize-then-resolve task per image, bounded by the configured
// concurrency. Every image yields exactly one Outcome at the same position
// as its input; a failed image never affects its siblings and is never
// retried automatically.
package scan
