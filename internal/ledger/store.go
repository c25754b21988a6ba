package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cardscan/internal/card"
	"cardscan/internal/config"
	"cardscan/internal/logging"
)

// Backend names accepted by ledger.backend.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// ErrUnknownColumn is returned for a filter naming a column the ledger does
// not have.
var ErrUnknownColumn = errors.New("unknown ledger column")

// Store is the collection ledger port.
type Store interface {
	// Load returns every row in ledger order.
	Load(ctx context.Context) ([]card.Record, error)
	// MergeOne validates c and merges it by name, returning the stored row.
	MergeOne(ctx context.Context, c card.Candidate) (card.Record, error)
	// List returns the rows matching every filter entry.
	List(ctx context.Context, filter Filter) ([]card.Record, error)
	Close() error
}

// Filter selects rows whose column text equals the given value.
type Filter map[string]string

// Validate rejects filters on unknown columns.
func (f Filter) Validate() error {
	var unknown []string
	for column := range f {
		if !card.IsColumn(column) {
			unknown = append(unknown, column)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownColumn, strings.Join(unknown, ", "))
	}
	return nil
}

// Matches reports whether rec satisfies every filter entry.
func (f Filter) Matches(rec card.Record) bool {
	for column, value := range f {
		if rec.Field(column) != value {
			return false
		}
	}
	return true
}

func applyFilter(rows []card.Record, filter Filter) []card.Record {
	if len(filter) == 0 {
		return rows
	}
	matched := make([]card.Record, 0, len(rows))
	for _, rec := range rows {
		if filter.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// MergeResult reports the merge of one submitted record.
type MergeResult struct {
	Index int
	Card  *card.Record
	Err   error
}

// MergeBatch merges candidates one at a time in submission order. A failed
// record does not stop the records after it; each gets its own result.
func MergeBatch(ctx context.Context, store Store, candidates []card.Candidate) []MergeResult {
	results := make([]MergeResult, len(candidates))
	for i, c := range candidates {
		results[i].Index = i
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		rec, err := store.MergeOne(ctx, c)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Card = &rec
	}
	return results
}

// Open constructs the store selected by cfg.Ledger.Backend.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("ledger requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	switch cfg.Ledger.Backend {
	case BackendCSV, "":
		return OpenCSV(cfg.Ledger.Path, logger)
	case BackendSQLite:
		return OpenSQLite(cfg.Ledger.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}
}
