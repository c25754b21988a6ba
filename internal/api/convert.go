package api

import (
	"cardscan/internal/ledger"
	"cardscan/internal/lookupcache"
	"cardscan/internal/scan"
	"cardscan/internal/services"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FromOutcome converts a pipeline outcome to its API representation.
func FromOutcome(o scan.Outcome) ScanOutcome {
	dto := ScanOutcome{
		Index:      o.Index,
		Filename:   o.Filename,
		Status:     string(o.Status),
		Candidate:  o.Candidate,
		MatchScore: o.MatchScore,
		Retryable:  o.Retryable(),
	}
	if o.OK() {
		c := *o.Card
		dto.Card = &c
	}
	if o.Err != nil {
		dto.Error = o.Err.Error()
	}
	return dto
}

// FromOutcomes converts pipeline outcomes, preserving order.
func FromOutcomes(outcomes []scan.Outcome) []ScanOutcome {
	out := make([]ScanOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, FromOutcome(o))
	}
	return out
}

// FromMergeResults converts ledger merge results, preserving order.
func FromMergeResults(results []ledger.MergeResult) []MergeResult {
	out := make([]MergeResult, 0, len(results))
	for _, r := range results {
		dto := MergeResult{Index: r.Index, Card: r.Card}
		if r.Err != nil {
			dto.Error = r.Err.Error()
			dto.ErrorKind = services.Kind(r.Err)
		}
		out = append(out, dto)
	}
	return out
}

// FromCacheEntries converts lookup cache entries.
func FromCacheEntries(entries []lookupcache.Entry) []CacheEntry {
	out := make([]CacheEntry, 0, len(entries))
	for _, e := range entries {
		dto := CacheEntry{Query: e.Query, CardName: e.Card.Name}
		if !e.CachedAt.IsZero() {
			dto.CachedAt = e.CachedAt.UTC().Format(dateTimeFormat)
		}
		out = append(out, dto)
	}
	return out
}
