// Package batch enforces the per-request batch size limit shared by the scan
// and confirm entry points.
package batch

import (
	"fmt"

	"cardscan/internal/services"
)

// CheckSize rejects a batch of count items when it exceeds max. The check is
// all-or-nothing: callers must not process any item of a rejected batch.
func CheckSize(count, max int) error {
	if count > max {
		return fmt.Errorf("%w: %d items submitted, limit is %d", services.ErrBatchTooLarge, count, max)
	}
	return nil
}
