package testsupport

import (
	"context"
	"testing"

	"cardscan/internal/card"
	"cardscan/internal/config"
	"cardscan/internal/ledger"
)

// MustOpenLedger opens the configured ledger backend and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg, nil)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustMerge merges rec into store as a fully specified candidate.
func MustMerge(t testing.TB, store ledger.Store, rec card.Record) card.Record {
	t.Helper()

	merged, err := store.MergeOne(context.Background(), card.NewCandidate(rec))
	if err != nil {
		t.Fatalf("MergeOne(%q): %v", rec.Name, err)
	}
	return merged
}
