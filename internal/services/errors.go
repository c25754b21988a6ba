package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoTextDetected      = errors.New("no text detected")
	ErrInvalidImage        = errors.New("invalid image")
	ErrCardNotFound        = errors.New("card not found")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrInvalidRecord       = errors.New("invalid record")
	ErrBatchTooLarge       = errors.New("batch too large")
	ErrConfiguration       = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProviderUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether err stems from a transient provider fault. Terminal
// failures (missing text, unknown card, invalid input) are never retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// Kind returns a short machine-readable classification used in API payloads
// and log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoTextDetected):
		return "no_text"
	case errors.Is(err, ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, ErrCardNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRecord):
		return "invalid_record"
	case errors.Is(err, ErrBatchTooLarge):
		return "batch_too_large"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "provider_error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
