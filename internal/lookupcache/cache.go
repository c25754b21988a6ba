package lookupcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"cardscan/internal/card"
	"cardscan/internal/fileutil"
	"cardscan/internal/logging"
	"cardscan/internal/textutil"
)

// Entry represents a cached mapping from recognized text to a card.
type Entry struct {
	Query    string      `json:"query"`
	Card     card.Record `json:"card"`
	CachedAt time.Time   `json:"cached_at"`
}

// Cache provides thread-safe access to the lookup cache.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry // keyed by Key(query)
}

var folder = cases.Fold()

// Key normalizes a recognized name into its cache key.
func Key(query string) string {
	return folder.String(textutil.CleanLine(query))
}

// NewCache creates a new cache instance. If path is empty, the cache will be
// non-functional (all operations become no-ops). The cache file is created
// lazily on first Store call.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "lookupcache")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logger.Warn("failed to load lookup cache; starting empty",
			logging.String(logging.FieldEventType, "lookupcache_load_failed"),
			logging.Error(err))
	}

	return c
}

// Enabled reports whether the cache is backed by a file.
func (c *Cache) Enabled() bool {
	return c != nil && c.path != ""
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Lookup returns the cached card for the recognized query if found.
func (c *Cache) Lookup(query string) (card.Record, bool) {
	key := Key(query)
	if key == "" || !c.Enabled() {
		return card.Record{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	return entry.Card, found
}

// Store adds or updates an entry and persists the cache to disk.
func (c *Cache) Store(query string, rec card.Record) error {
	key := Key(query)
	if key == "" {
		return errors.New("query cannot be empty")
	}
	if !c.Enabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{Query: key, Card: rec, CachedAt: time.Now().UTC()}

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached card lookup",
		logging.String("query", key),
		logging.String("card_name", rec.Name))
	return nil
}

// List returns all cache entries sorted by CachedAt descending (newest first).
func (c *Cache) List() []Entry {
	if !c.Enabled() {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.sortedLocked()
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cleared lookup cache")
	return nil
}

// Count returns the number of entries in the cache.
func (c *Cache) Count() int {
	if !c.Enabled() {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if key := Key(entry.Query); key != "" {
			entry.Query = key
			c.entries[key] = entry
		}
	}

	c.logger.Debug("loaded lookup cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

func (c *Cache) sortedLocked() []Entry {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return strings.Compare(entries[i].Query, entries[j].Query) < 0
		}
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
	return entries
}

func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	return fileutil.WriteFileAtomic(c.path, data, 0o644)
}
