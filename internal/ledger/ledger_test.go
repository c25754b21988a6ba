package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"cardscan/internal/card"
	"cardscan/internal/config"
	"cardscan/internal/services"
)

type backendCase struct {
	name string
	open func(t *testing.T, dir string) Store
}

func backends() []backendCase {
	return []backendCase{
		{BackendCSV, func(t *testing.T, dir string) Store {
			t.Helper()
			store, err := OpenCSV(filepath.Join(dir, "cards.csv"), nil)
			if err != nil {
				t.Fatalf("OpenCSV: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		}},
		{BackendSQLite, func(t *testing.T, dir string) Store {
			t.Helper()
			store, err := OpenSQLite(filepath.Join(dir, "cards.db"), nil)
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		}},
	}
}

func candidate(t *testing.T, payload string) card.Candidate {
	t.Helper()
	var c card.Candidate
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		t.Fatalf("unmarshal candidate: %v", err)
	}
	return c
}

const elvesJSON = `{"name":"Llanowar Elves","type":"Creature — Elf Druid","colour":"G","mana_cost":"{G}","creature_type":"Elf Druid","power":"1","toughness":"1","abilities":"","oracle_text":"{T}: Add {G}."}`

func TestMergeOneAppendsThenIncrements(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.open(t, t.TempDir())

			rows, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(rows) != 0 {
				t.Fatalf("expected empty ledger, got %d rows", len(rows))
			}

			first, err := store.MergeOne(ctx, candidate(t, elvesJSON))
			if err != nil {
				t.Fatalf("MergeOne: %v", err)
			}
			if first.Quantity != 1 {
				t.Fatalf("expected quantity 1, got %d", first.Quantity)
			}

			second, err := store.MergeOne(ctx, candidate(t,
				`{"name":"Llanowar Elves","type":"Instant","colour":"U","mana_cost":"{U}","quantity":9}`))
			if err != nil {
				t.Fatalf("MergeOne: %v", err)
			}
			if second.Quantity != 2 {
				t.Fatalf("expected quantity 2, got %d", second.Quantity)
			}
			if second.Type != "Creature — Elf Druid" || second.Colour != "G" || second.ManaCost == nil || *second.ManaCost != "{G}" {
				t.Fatalf("first write should win for other fields: %+v", second)
			}

			rows, err = store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(rows) != 1 || rows[0].Quantity != 2 {
				t.Fatalf("unexpected ledger rows: %+v", rows)
			}
			if !reflect.DeepEqual(rows[0], second) {
				t.Fatalf("loaded row differs from merge result:\n got %#v\nwant %#v", rows[0], second)
			}
		})
	}
}

func TestMergeOneRejectsMissingFields(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.open(t, t.TempDir())

			_, err := store.MergeOne(ctx, candidate(t, `{"name":"Forest","type":"Basic Land — Forest"}`))
			if !errors.Is(err, services.ErrInvalidRecord) {
				t.Fatalf("expected invalid record, got %v", err)
			}
			if !strings.Contains(err.Error(), "colour, mana_cost") {
				t.Fatalf("expected missing fields in message, got %q", err.Error())
			}
			rows, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(rows) != 0 {
				t.Fatalf("invalid record must not be persisted, got %+v", rows)
			}
		})
	}
}

func TestMergeOneNameIsCaseSensitive(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.open(t, t.TempDir())
			for _, name := range []string{"Forest", "forest", "Forest"} {
				c := card.NewCandidate(card.Record{Name: name, Type: "Basic Land — Forest"})
				if _, err := store.MergeOne(ctx, c); err != nil {
					t.Fatalf("MergeOne: %v", err)
				}
			}
			rows, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(rows) != 2 {
				t.Fatalf("expected 2 rows, got %+v", rows)
			}
			if rows[0].Name != "Forest" || rows[0].Quantity != 2 || rows[1].Name != "forest" || rows[1].Quantity != 1 {
				t.Fatalf("unexpected rows: %+v", rows)
			}
		})
	}
}

func TestMergeOneClearsEmptyOptionalFields(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.open(t, t.TempDir())
			got, err := store.MergeOne(ctx, candidate(t,
				`{"name":"Island","type":"Basic Land — Island","colour":"","mana_cost":"","power":"","toughness":null}`))
			if err != nil {
				t.Fatalf("MergeOne: %v", err)
			}
			if got.ManaCost != nil || got.Power != nil || got.Toughness != nil {
				t.Fatalf("expected empty nullable fields cleared, got %+v", got)
			}
			rows, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(rows[0], got) {
				t.Fatalf("loaded row differs:\n got %#v\nwant %#v", rows[0], got)
			}
		})
	}
}

func TestListFilters(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.open(t, t.TempDir())
			records := []card.Record{
				{Name: "Llanowar Elves", Colour: "G", Type: "Creature — Elf Druid", ManaCost: card.Text("{G}")},
				{Name: "Counterspell", Colour: "U", Type: "Instant", ManaCost: card.Text("{U}{U}")},
				{Name: "Giant Growth", Colour: "G", Type: "Instant", ManaCost: card.Text("{G}")},
			}
			for _, rec := range records {
				if _, err := store.MergeOne(ctx, card.NewCandidate(rec)); err != nil {
					t.Fatalf("MergeOne: %v", err)
				}
			}
			if _, err := store.MergeOne(ctx, card.NewCandidate(records[2])); err != nil {
				t.Fatalf("MergeOne: %v", err)
			}

			green, err := store.List(ctx, Filter{"colour": "G"})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(green) != 2 || green[0].Name != "Llanowar Elves" || green[1].Name != "Giant Growth" {
				t.Fatalf("unexpected green cards: %+v", green)
			}

			both, err := store.List(ctx, Filter{"colour": "G", "type": "Instant"})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(both) != 1 || both[0].Name != "Giant Growth" {
				t.Fatalf("unexpected filtered cards: %+v", both)
			}

			doubles, err := store.List(ctx, Filter{"quantity": "2"})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(doubles) != 1 || doubles[0].Name != "Giant Growth" {
				t.Fatalf("unexpected quantity filter result: %+v", doubles)
			}

			if _, err := store.List(ctx, Filter{"rarity": "rare"}); !errors.Is(err, ErrUnknownColumn) {
				t.Fatalf("expected unknown column error, got %v", err)
			}
		})
	}
}

func TestMergeBatchIsolatesFailures(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.open(t, t.TempDir())

			results := MergeBatch(ctx, store, []card.Candidate{
				candidate(t, elvesJSON),
				candidate(t, `{"name":"Broken"}`),
				candidate(t, elvesJSON),
			})
			if len(results) != 3 {
				t.Fatalf("expected 3 results, got %d", len(results))
			}
			if results[0].Err != nil || results[0].Card.Quantity != 1 {
				t.Fatalf("unexpected first result: %+v", results[0])
			}
			if !errors.Is(results[1].Err, services.ErrInvalidRecord) || results[1].Card != nil {
				t.Fatalf("expected invalid record for second result, got %+v", results[1])
			}
			if results[2].Err != nil || results[2].Card.Quantity != 2 {
				t.Fatalf("unexpected third result: %+v", results[2])
			}
			for i, r := range results {
				if r.Index != i {
					t.Fatalf("result %d has index %d", i, r.Index)
				}
			}
		})
	}
}

func TestConcurrentMergesAreSerialized(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.open(t, t.TempDir())
			elves := candidate(t, elvesJSON)

			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := store.MergeOne(ctx, elves); err != nil {
						t.Errorf("MergeOne: %v", err)
					}
				}()
			}
			wg.Wait()

			rows, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(rows) != 1 || rows[0].Quantity != 8 {
				t.Fatalf("expected one row with quantity 8, got %+v", rows)
			}
		})
	}
}

func TestCSVFileLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cards.csv")
	store, err := OpenCSV(path, nil)
	if err != nil {
		t.Fatalf("OpenCSV: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	wantHeader := "name,colour,type,creature_type,mana_cost,power,toughness,abilities,oracle_text,quantity\n"
	if string(data) != wantHeader {
		t.Fatalf("new ledger = %q, want header only", data)
	}

	if _, err := store.MergeOne(ctx, candidate(t, elvesJSON)); err != nil {
		t.Fatalf("MergeOne: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	want := wantHeader + "Llanowar Elves,G,Creature — Elf Druid,Elf Druid,{G},1,1,,{T}: Add {G}.,1\n"
	if string(data) != want {
		t.Fatalf("ledger contents:\n%s\nwant:\n%s", data, want)
	}
}

func TestCSVReadsForeignColumnOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.csv")
	content := "\uFEFFquantity,name,type,colour,mana_cost\n3.0,Forest,Basic Land — Forest,,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := OpenCSV(path, nil)
	if err != nil {
		t.Fatalf("OpenCSV: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rows, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Forest" || rows[0].Quantity != 3 || rows[0].ManaCost != nil {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Ledger.Path = filepath.Join(dir, "cards.db")
	cfg.Ledger.Backend = BackendSQLite
	store, err := Open(&cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("expected SQLite store, got %T", store)
	}

	cfg.Ledger.Backend = "parquet"
	if _, err := Open(&cfg, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
