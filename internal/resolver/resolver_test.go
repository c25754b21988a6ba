package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cardscan/internal/card"
	"cardscan/internal/lookupcache"
	"cardscan/internal/scryfall"
	"cardscan/internal/services"
)

type stubSearcher struct {
	cards map[string]*scryfall.Card
	err   error
	calls int
}

func (s *stubSearcher) Named(_ context.Context, fuzzy string) (*scryfall.Card, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if c, ok := s.cards[fuzzy]; ok {
		return c, nil
	}
	return nil, services.Wrap(services.ErrCardNotFound, "scryfall", "named", fuzzy, nil)
}

func llanowarElves() *scryfall.Card {
	return &scryfall.Card{
		Name:       "Llanowar Elves",
		TypeLine:   "Creature — Elf Druid",
		ManaCost:   card.Text("{G}"),
		Colors:     []string{"G"},
		Power:      card.Text("1"),
		Toughness:  card.Text("1"),
		OracleText: card.Text("{T}: Add {G}."),
	}
}

func TestNormalize(t *testing.T) {
	rec := Normalize(scryfall.Card{
		Name:     "Knight of the Reliquary",
		TypeLine: "Creature — Human Knight",
		ManaCost: card.Text("{1}{G}{W}"),
		Colors:   []string{"G", "W"},
		Keywords: []string{"Flying", "Vigilance"},
	})
	if rec.Colour != "GW" {
		t.Errorf("Colour = %q, want GW", rec.Colour)
	}
	if rec.CreatureType != "Human Knight" {
		t.Errorf("CreatureType = %q", rec.CreatureType)
	}
	if rec.Abilities != "Flying, Vigilance" {
		t.Errorf("Abilities = %q", rec.Abilities)
	}
	if rec.OracleText != "" {
		t.Errorf("OracleText = %q, want empty", rec.OracleText)
	}
	if rec.Power != nil || rec.Toughness != nil {
		t.Errorf("expected absent power/toughness, got %v/%v", rec.Power, rec.Toughness)
	}
	if rec.Quantity != 0 {
		t.Errorf("Quantity = %d, resolver must not set quantity", rec.Quantity)
	}
}

func TestCreatureType(t *testing.T) {
	tests := []struct {
		typeLine string
		want     string
	}{
		{"Creature — Elf Druid", "Elf Druid"},
		{"Land", ""},
		{"Legendary Enchantment Creature — God", "God"},
		{"", ""},
		{"Artifact —   ", ""},
	}
	for _, tt := range tests {
		if got := CreatureType(tt.typeLine); got != tt.want {
			t.Errorf("CreatureType(%q) = %q, want %q", tt.typeLine, got, tt.want)
		}
	}
}

func TestResolveColorlessCard(t *testing.T) {
	searcher := &stubSearcher{cards: map[string]*scryfall.Card{
		"sol ring": {Name: "Sol Ring", TypeLine: "Artifact", ManaCost: card.Text("{1}"), OracleText: card.Text("{T}: Add {C}{C}.")},
	}}
	rec, err := New(searcher).Resolve(context.Background(), "sol ring")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if rec.Colour != "" || rec.CreatureType != "" || rec.Abilities != "" {
		t.Fatalf("unexpected colorless normalization: %+v", rec)
	}
}

func TestResolveDistinguishesFailures(t *testing.T) {
	notFound := New(&stubSearcher{})
	if _, err := notFound.Resolve(context.Background(), "Qwxyz"); !errors.Is(err, services.ErrCardNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	down := New(&stubSearcher{err: services.Wrap(services.ErrProviderUnavailable, "scryfall", "named", "503", nil)})
	_, err := down.Resolve(context.Background(), "Forest")
	if !errors.Is(err, services.ErrProviderUnavailable) || errors.Is(err, services.ErrCardNotFound) {
		t.Fatalf("expected provider unavailable only, got %v", err)
	}
}

func TestResolveUsesCache(t *testing.T) {
	searcher := &stubSearcher{cards: map[string]*scryfall.Card{"Llanowar Elves": llanowarElves()}}
	cache := lookupcache.NewCache(filepath.Join(t.TempDir(), "lookups.json"), nil)
	r := New(searcher, WithCache(cache))

	for range 2 {
		rec, err := r.Resolve(context.Background(), "Llanowar Elves")
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if rec.Name != "Llanowar Elves" || rec.CreatureType != "Elf Druid" {
			t.Fatalf("unexpected record: %+v", rec)
		}
	}
	if searcher.calls != 1 {
		t.Fatalf("expected one provider call, got %d", searcher.calls)
	}
}

func TestResolveWithoutCacheAlwaysQueries(t *testing.T) {
	searcher := &stubSearcher{cards: map[string]*scryfall.Card{"Llanowar Elves": llanowarElves()}}
	r := New(searcher)
	for range 2 {
		if _, err := r.Resolve(context.Background(), "Llanowar Elves"); err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
	}
	if searcher.calls != 2 {
		t.Fatalf("expected two provider calls, got %d", searcher.calls)
	}
}
