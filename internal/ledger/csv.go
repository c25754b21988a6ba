package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"cardscan/internal/card"
	"cardscan/internal/fileutil"
	"cardscan/internal/logging"
)

const lockRetryDelay = 25 * time.Millisecond

// CSVStore keeps the ledger in a CSV file with a fixed header row.
type CSVStore struct {
	path   string
	lock   *flock.Flock
	mu     sync.Mutex
	logger *slog.Logger
}

var _ Store = (*CSVStore)(nil)

// OpenCSV opens the ledger at path, creating it with only a header row if it
// does not exist yet.
func OpenCSV(path string, logger *slog.Logger) (*CSVStore, error) {
	if path == "" {
		return nil, errors.New("ledger path required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	s := &CSVStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.NewComponentLogger(logger, "ledger"),
	}
	if err := s.ensureFile(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the ledger file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Load returns every row in file order.
func (s *CSVStore) Load(ctx context.Context) ([]card.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.read()
}

// List returns the rows matching filter in file order.
func (s *CSVStore) List(ctx context.Context, filter Filter) ([]card.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return applyFilter(rows, filter), nil
}

// MergeOne validates c, then increments the quantity of the row with the
// same name or appends a new row with quantity 1.
func (s *CSVStore) MergeOne(ctx context.Context, c card.Candidate) (card.Record, error) {
	rec, err := card.Validate(c)
	if err != nil {
		return card.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx, true)
	if err != nil {
		return card.Record{}, err
	}
	defer unlock()

	rows, err := s.read()
	if err != nil {
		return card.Record{}, err
	}

	logger := logging.WithContext(ctx, s.logger)
	for i := range rows {
		if rows[i].Name != rec.Name {
			continue
		}
		rows[i].Quantity++
		if err := s.write(rows); err != nil {
			return card.Record{}, err
		}
		logger.Debug("ledger quantity incremented",
			logging.String("card_name", rec.Name),
			logging.Int("quantity", rows[i].Quantity))
		return rows[i], nil
	}

	rows = append(rows, rec)
	if err := s.write(rows); err != nil {
		return card.Record{}, err
	}
	logger.Debug("ledger row appended", logging.String("card_name", rec.Name))
	return rec, nil
}

// Close releases the lock file handle.
func (s *CSVStore) Close() error {
	return s.lock.Close()
}

func (s *CSVStore) ensureFile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat ledger: %w", err)
	}
	if err := s.write(nil); err != nil {
		return err
	}
	s.logger.Info("created empty ledger", logging.String("path", s.path))
	return nil
}

// acquire takes the advisory file lock: exclusive for writers, shared for
// readers.
func (s *CSVStore) acquire(ctx context.Context, exclusive bool) (func(), error) {
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock ledger: %w", err)
	}
	if !locked {
		return nil, errors.New("lock ledger: lock not acquired")
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release ledger lock", logging.Error(err))
		}
	}, nil
}

func (s *CSVStore) read() ([]card.Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	var rows []card.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		rec, err := card.FromRow(header, row)
		if err != nil {
			return nil, fmt.Errorf("parse ledger line %d: %w", line, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func (s *CSVStore) write(rows []card.Record) error {
	err := fileutil.WriteAtomic(s.path, 0o644, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(card.Columns); err != nil {
			return err
		}
		for _, rec := range rows {
			if err := writer.Write(rec.Row()); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
