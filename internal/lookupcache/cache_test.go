package lookupcache

import (
	"os"
	"path/filepath"
	"testing"

	"cardscan/internal/card"
)

func elves() card.Record {
	return card.Record{
		Name:         "Llanowar Elves",
		Colour:       "G",
		Type:         "Creature — Elf Druid",
		CreatureType: "Elf Druid",
		ManaCost:     card.Text("{G}"),
		Power:        card.Text("1"),
		Toughness:    card.Text("1"),
		OracleText:   "{T}: Add {G}.",
	}
}

func TestCacheStoreAndLookup(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "lookups.json"), nil)

	if err := cache.Store("Llanowar Elves", elves()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	found, ok := cache.Lookup("  llanowar   ELVES ")
	if !ok {
		t.Fatal("Lookup failed to match a case and whitespace variant")
	}
	if found.Name != "Llanowar Elves" || found.ManaCost == nil || *found.ManaCost != "{G}" {
		t.Fatalf("unexpected card: %+v", found)
	}
}

func TestCacheLookupMissAndEmpty(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "lookups.json"), nil)

	if _, ok := cache.Lookup("Forest"); ok {
		t.Error("Lookup should return false for non-existent entry")
	}
	if _, ok := cache.Lookup("   "); ok {
		t.Error("Lookup should return false for blank query")
	}
	if err := cache.Store(" ", elves()); err == nil {
		t.Error("Store should fail for blank query")
	}
}

func TestCachePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookups.json")

	first := NewCache(path, nil)
	if err := first.Store("Llanowar Elves", elves()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	second := NewCache(path, nil)
	found, ok := second.Lookup("llanowar elves")
	if !ok {
		t.Fatal("Entry should persist across cache instances")
	}
	if found.Toughness == nil || *found.Toughness != "1" {
		t.Errorf("Toughness mismatch: got %v", found.Toughness)
	}
	if second.Count() != 1 {
		t.Errorf("expected 1 entry, got %d", second.Count())
	}
}

func TestCacheClear(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "lookups.json"), nil)
	for _, name := range []string{"Forest", "Island", "Swamp"} {
		rec := card.Record{Name: name, Type: "Basic Land — " + name}
		if err := cache.Store(name, rec); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	if cache.Count() != 3 {
		t.Fatalf("Expected 3 entries before clear, got %d", cache.Count())
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cache.Count() != 0 || len(cache.List()) != 0 {
		t.Errorf("expected empty cache after clear")
	}
}

func TestCacheEmptyPath(t *testing.T) {
	cache := NewCache("", nil)

	if cache.Enabled() {
		t.Fatal("cache without path should be disabled")
	}
	if err := cache.Store("Forest", card.Record{Name: "Forest"}); err != nil {
		t.Errorf("Store with empty path should not error: %v", err)
	}
	if _, ok := cache.Lookup("Forest"); ok {
		t.Error("Lookup with empty path should always return false")
	}
	if cache.List() != nil {
		t.Error("List with empty path should return nil")
	}
	if err := cache.Clear(); err != nil {
		t.Errorf("Clear with empty path should not error: %v", err)
	}
}

func TestCacheCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookups.json")
	if err := os.WriteFile(path, []byte("not valid json"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	cache := NewCache(path, nil)
	if err := cache.Store("Forest", card.Record{Name: "Forest"}); err != nil {
		t.Errorf("Store should work after corrupt file: %v", err)
	}
	if _, ok := cache.Lookup("forest"); !ok {
		t.Error("Lookup should work after recovering from corrupt file")
	}
}
