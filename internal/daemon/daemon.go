package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cardscan/internal/api"
	"cardscan/internal/config"
	"cardscan/internal/logging"
)

// Daemon enforces single-instance execution and serves the card API.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	cards   *api.CardService
	version string

	lockPath string
	lock     *flock.Flock

	server *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithVersion sets the version reported by the status endpoint.
func WithVersion(version string) Option {
	return func(d *Daemon) {
		d.version = version
	}
}

// New constructs a daemon around an initialized card service.
func New(cfg *config.Config, cards *api.CardService, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || cards == nil {
		return nil, errors.New("daemon requires config and card service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		cards:    cards,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and starts serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cardscand instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.server.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("cardscand started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.addr()),
		logging.String("ledger_path", d.cfg.Ledger.Path),
		logging.String("ledger_backend", d.cfg.Ledger.Backend),
		logging.Int("max_batch_size", d.cards.MaxBatchSize()))
	return nil
}

// Stop shuts the API server down and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cardscand stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the lock file handle.
func (d *Daemon) Close() error {
	d.Stop()
	return d.lock.Close()
}

// Addr returns the address the API server is listening on, or "" before Start.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Handler returns the routed API handler, including authentication.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.Status {
	status := api.Status{
		Running:          d.running.Load(),
		PID:              os.Getpid(),
		Version:          d.version,
		LedgerPath:       d.cfg.Ledger.Path,
		LedgerBackend:    d.cfg.Ledger.Backend,
		MaxBatchSize:     d.cards.MaxBatchSize(),
		ScanConcurrency:  d.cfg.Scan.Concurrency,
		VisionConfigured: d.cfg.VisionConfigured(),
		LockFilePath:     d.lockPath,
	}
	rows, cards, err := d.cards.LedgerTotals(ctx)
	if err != nil {
		d.logger.Warn("ledger totals unavailable", logging.Error(err))
	} else {
		status.LedgerRows = rows
		status.LedgerCards = cards
	}
	listing := d.cards.CacheEntries()
	status.CacheEnabled = listing.Enabled
	status.CacheEntries = len(listing.Entries)
	return status
}
