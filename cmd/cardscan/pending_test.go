package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"cardscan/internal/api"
	"cardscan/internal/card"
)

func TestPendingRoundTripAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")

	cards, err := loadPending(path)
	if err != nil || cards != nil {
		t.Fatalf("missing file should load empty, got %v, %v", cards, err)
	}

	elves := knownCards["Llanowar Elves"]
	resp := api.ScanResponse{
		RequestID: "req-1",
		Outcomes: []api.ScanOutcome{
			{Index: 0, Filename: "a.jpg", Status: "ok", Card: &elves},
			{Index: 1, Filename: "b.jpg", Status: "no_text"},
		},
	}
	added, err := appendPending(path, resp)
	if err != nil || added != 1 {
		t.Fatalf("appendPending = %d, %v", added, err)
	}
	added, err = appendPending(path, resp)
	if err != nil || added != 1 {
		t.Fatalf("second appendPending = %d, %v", added, err)
	}

	cards, err = loadPending(path)
	if err != nil {
		t.Fatalf("loadPending: %v", err)
	}
	if len(cards) != 2 || cards[1].Source != "a.jpg" || cards[1].RequestID != "req-1" {
		t.Fatalf("unexpected pending cards %+v", cards)
	}
	if !reflect.DeepEqual(cards[0].Card, elves) {
		t.Fatalf("card did not survive round trip: %+v", cards[0].Card)
	}

	if err := savePending(path, nil); err != nil {
		t.Fatalf("savePending(nil): %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected pending file removed, stat err = %v", err)
	}
	if err := savePending(path, nil); err != nil {
		t.Fatalf("clearing twice should succeed: %v", err)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		n       int
		want    []int
		wantErr bool
	}{
		{name: "empty", value: "", n: 3, want: nil},
		{name: "single", value: "2", n: 3, want: []int{1}},
		{name: "list and range", value: "1, 3-4", n: 5, want: []int{0, 2, 3}},
		{name: "reversed range", value: "4-2", n: 5, want: []int{1, 2, 3}},
		{name: "zero", value: "0", n: 3, wantErr: true},
		{name: "past end", value: "2-9", n: 3, wantErr: true},
		{name: "garbage", value: "two", n: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSelection(tt.value, tt.n)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSelection: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for _, idx := range tt.want {
				if !got[idx] {
					t.Fatalf("missing index %d in %v", idx, got)
				}
			}
		})
	}
}

type batchingClient struct {
	max     int
	batches [][]card.Record
	short   bool
	failOn  int // 1-based batch number that fails, 0 for none
}

func (c *batchingClient) Status(context.Context) (api.Status, error) {
	return api.Status{Running: true, MaxBatchSize: c.max}, nil
}

func (c *batchingClient) Confirm(_ context.Context, cards []card.Record) ([]api.MergeResult, error) {
	c.batches = append(c.batches, cards)
	if c.failOn == len(c.batches) {
		return nil, errors.New("server returned 502: boom")
	}
	if len(cards) > c.max {
		return nil, errors.New("batch too large")
	}
	results := make([]api.MergeResult, len(cards))
	for i := range cards {
		rec := cards[i]
		results[i] = api.MergeResult{Index: i, Card: &rec}
	}
	if c.short {
		results = results[:len(results)-1]
	}
	return results, nil
}

func TestConfirmInBatches(t *testing.T) {
	cards := make([]pendingCard, 5)
	for i := range cards {
		cards[i] = pendingCard{Card: knownCards["Forest"]}
	}

	client := &batchingClient{max: 2}
	results, err := confirmInBatches(context.Background(), client, cards)
	if err != nil {
		t.Fatalf("confirmInBatches: %v", err)
	}
	if len(client.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(client.batches))
	}
	for i, r := range results {
		if r.Index != i {
			t.Fatalf("result %d has index %d", i, r.Index)
		}
	}

	short := &batchingClient{max: 10, short: true}
	if _, err := confirmInBatches(context.Background(), short, cards); err == nil {
		t.Fatal("expected mismatched result count error")
	}
}

func TestConfirmInBatchesKeepsMergedChunksOnFailure(t *testing.T) {
	cards := make([]pendingCard, 5)
	for i := range cards {
		cards[i] = pendingCard{Card: knownCards["Forest"]}
	}

	client := &batchingClient{max: 2, failOn: 2}
	results, err := confirmInBatches(context.Background(), client, cards)
	if err == nil {
		t.Fatal("expected failure from second batch")
	}
	if len(results) != 2 {
		t.Fatalf("expected results of the first batch, got %d", len(results))
	}
	if len(client.batches) != 2 {
		t.Fatalf("confirm should stop after the failing batch, sent %d", len(client.batches))
	}

	remaining, added := settlePending(cards, results, err)
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	if len(remaining) != 3 {
		t.Fatalf("expected 3 cards to stay pending, got %d", len(remaining))
	}
	for _, p := range remaining {
		if p.LastError != err.Error() {
			t.Fatalf("unmerged card should carry the failure, got %q", p.LastError)
		}
	}
}

func TestSettlePending(t *testing.T) {
	selected := []pendingCard{
		{Source: "a.jpg", Card: knownCards["Forest"]},
		{Source: "b.jpg", Card: knownCards["Llanowar Elves"]},
		{Source: "c.jpg", Card: knownCards["Forest"], LastError: "old"},
	}
	forest := knownCards["Forest"]
	results := []api.MergeResult{
		{Index: 0, Card: &forest},
		{Index: 1, Error: "invalid record: missing name"},
		{Index: 2, Card: &forest},
	}

	remaining, added := settlePending(selected, results, nil)
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	if len(remaining) != 1 || remaining[0].Source != "b.jpg" || remaining[0].LastError != "invalid record: missing name" {
		t.Fatalf("unexpected remaining %+v", remaining)
	}
}
