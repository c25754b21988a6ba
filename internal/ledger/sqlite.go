package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cardscan/internal/card"
	"cardscan/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const recordColumns = `name, colour, type, creature_type, mana_cost, power, toughness, abilities, oracle_text, quantity`

// SQLiteStore keeps the ledger in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the ledger database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("ledger path required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path, logger: logging.NewComponentLogger(logger, "ledger")}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns every row in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]card.Record, error) {
	return s.List(ctx, nil)
}

// List returns the rows matching filter in insertion order.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]card.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	columns := make([]string, 0, len(filter))
	for column := range filter {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	query := `SELECT ` + recordColumns + ` FROM cards`
	args := make([]any, 0, len(columns))
	if len(columns) > 0 {
		clauses := make([]string, 0, len(columns))
		for _, column := range columns {
			// column names come from the card.Columns whitelist
			clauses = append(clauses, fmt.Sprintf("COALESCE(CAST(%s AS TEXT), '') = ?", column))
			args = append(args, filter[column])
		}
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY rowid`

	var rows []card.Record
	err := retryOnBusy(ctx, func() error {
		rows = nil
		result, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer result.Close()
		for result.Next() {
			rec, err := scanRecord(result)
			if err != nil {
				return err
			}
			rows = append(rows, rec)
		}
		return result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return rows, nil
}

// MergeOne validates c and upserts it by name inside one transaction.
func (s *SQLiteStore) MergeOne(ctx context.Context, c card.Candidate) (card.Record, error) {
	rec, err := card.Validate(c)
	if err != nil {
		return card.Record{}, err
	}

	var stored card.Record
	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cards (`+recordColumns+`, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(name) DO UPDATE SET quantity = cards.quantity + 1`,
			rec.Name,
			rec.Colour,
			rec.Type,
			rec.CreatureType,
			nullableText(rec.ManaCost),
			nullableText(rec.Power),
			nullableText(rec.Toughness),
			rec.Abilities,
			rec.OracleText,
			rec.Quantity,
			time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM cards WHERE name = ?`, rec.Name)
		if stored, err = scanRecord(row); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return card.Record{}, fmt.Errorf("merge card: %w", err)
	}

	logging.WithContext(ctx, s.logger).Debug("ledger card merged",
		logging.String("card_name", stored.Name),
		logging.Int("quantity", stored.Quantity))
	return stored, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	s.logger.Info("created empty ledger", logging.String("path", s.path))
	return nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (card.Record, error) {
	var (
		rec                        card.Record
		manaCost, power, toughness sql.NullString
	)
	if err := scanner.Scan(
		&rec.Name,
		&rec.Colour,
		&rec.Type,
		&rec.CreatureType,
		&manaCost,
		&power,
		&toughness,
		&rec.Abilities,
		&rec.OracleText,
		&rec.Quantity,
	); err != nil {
		return card.Record{}, err
	}
	rec.ManaCost = textOrNil(manaCost)
	rec.Power = textOrNil(power)
	rec.Toughness = textOrNil(toughness)
	return rec, nil
}

func nullableText(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}

func textOrNil(value sql.NullString) *string {
	if !value.Valid || value.String == "" {
		return nil
	}
	return &value.String
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
