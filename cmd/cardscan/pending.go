package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"cardscan/internal/api"
	"cardscan/internal/card"
	"cardscan/internal/fileutil"
)

// pendingCard is a resolved scan awaiting review before it is confirmed into
// the ledger.
type pendingCard struct {
	Source    string      `json:"source,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Card      card.Record `json:"card"`
	LastError string      `json:"last_error,omitempty"`
}

func loadPending(path string) ([]pendingCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pending cards: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var cards []pendingCard
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse pending cards %s: %w", path, err)
	}
	return cards, nil
}

// savePending replaces the pending list. An empty list removes the file.
func savePending(path string, cards []pendingCard) error {
	if len(cards) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear pending cards: %w", err)
		}
		return nil
	}
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending cards: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write pending cards: %w", err)
	}
	return nil
}

// appendPending adds the resolved cards of resp to the pending list and
// returns how many were added.
func appendPending(path string, resp api.ScanResponse) (int, error) {
	existing, err := loadPending(path)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, o := range resp.Outcomes {
		if o.Card == nil {
			continue
		}
		existing = append(existing, pendingCard{
			Source:    o.Filename,
			RequestID: resp.RequestID,
			Card:      *o.Card,
		})
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, savePending(path, existing)
}

// parseSelection parses a list of one-based positions such as "2,4-6" against
// a list of n entries and returns the matching zero-based indexes.
func parseSelection(value string, n int) (map[int]bool, error) {
	selected := make(map[int]bool)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, hi = strings.TrimSpace(a), strings.TrimSpace(b)
		}
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid position %q", part)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid position %q", part)
		}
		if start > end {
			start, end = end, start
		}
		if start < 1 || end > n {
			return nil, fmt.Errorf("position %q out of range (1-%d)", part, n)
		}
		for i := start; i <= end; i++ {
			selected[i-1] = true
		}
	}
	return selected, nil
}
