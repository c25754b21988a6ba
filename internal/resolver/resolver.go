package resolver

import (
	"context"
	"log/slog"
	"strings"

	"cardscan/internal/card"
	"cardscan/internal/logging"
	"cardscan/internal/lookupcache"
	"cardscan/internal/scryfall"
	"cardscan/internal/services"
)

// typeSeparator divides the card types from the subtypes on a type line.
const typeSeparator = "—"

// Resolver resolves candidate names against the card database.
type Resolver struct {
	searcher scryfall.Searcher
	cache    *lookupcache.Cache
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables lookup caching.
func WithCache(cache *lookupcache.Cache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Resolver backed by searcher.
func New(searcher scryfall.Searcher, opts ...Option) *Resolver {
	r := &Resolver{searcher: searcher, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "resolver")
	return r
}

// Resolve looks up candidate and returns the normalized record. Quantity is
// left at zero; the ledger assigns it on insertion.
func (r *Resolver) Resolve(ctx context.Context, candidate string) (card.Record, error) {
	logger := logging.WithContext(ctx, r.logger)

	if rec, ok := r.cache.Lookup(candidate); ok {
		logger.Debug("lookup cache hit",
			logging.String("candidate", candidate),
			logging.String("card_name", rec.Name))
		return rec, nil
	}

	found, err := r.searcher.Named(ctx, candidate)
	if err != nil {
		return card.Record{}, err
	}
	if found == nil {
		return card.Record{}, services.Wrap(services.ErrProviderUnavailable, "resolver", "resolve", "empty lookup result", nil)
	}
	rec := Normalize(*found)

	if err := r.cache.Store(candidate, rec); err != nil {
		logger.Warn("lookup cache store failed; continuing without cache",
			logging.String(logging.FieldEventType, "lookupcache_store_failed"),
			logging.Error(err))
	}
	return rec, nil
}

// Normalize maps a card database object onto ledger columns.
func Normalize(c scryfall.Card) card.Record {
	rec := card.Record{
		Name:         c.Name,
		Colour:       strings.Join(c.Colors, ""),
		Type:         c.TypeLine,
		CreatureType: CreatureType(c.TypeLine),
		ManaCost:     c.ManaCost,
		Power:        c.Power,
		Toughness:    c.Toughness,
		Abilities:    strings.Join(c.Keywords, ", "),
	}
	if c.OracleText != nil {
		rec.OracleText = *c.OracleText
	}
	return rec
}

// CreatureType returns the trimmed text after the first type separator, or
// "" when the type line has none.
func CreatureType(typeLine string) string {
	_, after, found := strings.Cut(typeLine, typeSeparator)
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}
