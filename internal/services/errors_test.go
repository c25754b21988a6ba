package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"cardscan/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrProviderUnavailable, "scryfall", "named", "lookup failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrProviderUnavailable) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"scryfall", "named", "lookup failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrProviderUnavailable) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindAndRetryable(t *testing.T) {
	tests := []struct {
		err       error
		kind      string
		retryable bool
	}{
		{nil, "ok", false},
		{services.Wrap(services.ErrNoTextDetected, "vision", "annotate", "", nil), "no_text", false},
		{services.Wrap(services.ErrInvalidImage, "vision", "annotate", "empty image", nil), "invalid_image", false},
		{services.Wrap(services.ErrCardNotFound, "scryfall", "named", "", nil), "not_found", false},
		{services.Wrap(services.ErrInvalidRecord, "ledger", "merge", "", nil), "invalid_record", false},
		{fmt.Errorf("outer: %w", services.ErrBatchTooLarge), "batch_too_large", false},
		{services.Wrap(services.ErrProviderUnavailable, "scryfall", "named", "", errors.New("eof")), "provider_error", true},
		{errors.New("unclassified"), "provider_error", false},
	}
	for _, tc := range tests {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.Retryable(tc.err); got != tc.retryable {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.retryable)
		}
	}
}
