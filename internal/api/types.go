package api

import "cardscan/internal/card"

// ScanOutcome describes the result for one submitted image.
type ScanOutcome struct {
	Index      int          `json:"index"`
	Filename   string       `json:"filename,omitempty"`
	Status     string       `json:"status"`
	Candidate  string       `json:"candidate,omitempty"`
	MatchScore float64      `json:"match_score,omitempty"`
	Retryable  bool         `json:"retryable"`
	Card       *card.Record `json:"card,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ScanResponse wraps the outcomes of one scan request.
type ScanResponse struct {
	RequestID string        `json:"request_id"`
	Submitted int           `json:"submitted"`
	Failed    int           `json:"failed"`
	Outcomes  []ScanOutcome `json:"outcomes"`
}

// Cards returns the resolved cards in submission order.
func (r ScanResponse) Cards() []card.Record {
	cards := make([]card.Record, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Card != nil {
			cards = append(cards, *o.Card)
		}
	}
	return cards
}

// MergeResult describes the outcome of merging one submitted record.
type MergeResult struct {
	Index     int          `json:"index"`
	Card      *card.Record `json:"card,omitempty"`
	Error     string       `json:"error,omitempty"`
	ErrorKind string       `json:"error_kind,omitempty"`
}

// Status aggregates server runtime information for API consumers.
type Status struct {
	Running          bool   `json:"running"`
	PID              int    `json:"pid"`
	Version          string `json:"version,omitempty"`
	LedgerPath       string `json:"ledger_path"`
	LedgerBackend    string `json:"ledger_backend"`
	LedgerRows       int    `json:"ledger_rows"`
	LedgerCards      int    `json:"ledger_cards"`
	MaxBatchSize     int    `json:"max_batch_size"`
	ScanConcurrency  int    `json:"scan_concurrency"`
	VisionConfigured bool   `json:"vision_configured"`
	CacheEnabled     bool   `json:"cache_enabled"`
	CacheEntries     int    `json:"cache_entries"`
	LockFilePath     string `json:"lock_file_path,omitempty"`
}

// CacheEntry describes one cached card lookup.
type CacheEntry struct {
	Query    string `json:"query"`
	CardName string `json:"card_name"`
	CachedAt string `json:"cached_at"`
}

// CacheListResponse wraps the cached lookups.
type CacheListResponse struct {
	Enabled bool         `json:"enabled"`
	Path    string       `json:"path,omitempty"`
	Entries []CacheEntry `json:"entries"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// CacheClearResponse reports how many cached lookups were removed.
type CacheClearResponse struct {
	Removed int `json:"removed"`
}
