// Package daemonrun assembles the cardscand runtime: logging, providers,
// ledger, card service, and the daemon lifecycle.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"cardscan/internal/api"
	"cardscan/internal/config"
	"cardscan/internal/daemon"
	"cardscan/internal/ledger"
	"cardscan/internal/logging"
	"cardscan/internal/lookupcache"
	"cardscan/internal/notifications"
	"cardscan/internal/preflight"
	"cardscan/internal/recognition"
	"cardscan/internal/resolver"
	"cardscan/internal/scan"
	"cardscan/internal/scryfall"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Version     string
}

// Run starts cardscand and blocks until a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logPreflight(signalCtx, logger, cfg)

	cards, closeStore, err := buildCardService(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("build card service", logging.Error(err))
		return err
	}
	defer closeStore()

	d, err := daemon.New(cfg, cards, logger, daemon.WithVersion(opts.Version))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// Written only once the instance lock is held so a losing second
	// daemon never touches the running one's pid file.
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("cardscand shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// buildCardService wires recognition, resolution, the lookup cache, and the
// ledger into the service the HTTP routes call.
func buildCardService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*api.CardService, func(), error) {
	recognizer, err := recognition.NewFromConfig(ctx, cfg.Vision)
	if err != nil {
		return nil, nil, err
	}

	searcher, err := scryfall.New(cfg.Scryfall.BaseURL,
		scryfall.WithTimeout(cfg.ScryfallTimeout()),
		scryfall.WithUserAgent(cfg.Scryfall.UserAgent))
	if err != nil {
		return nil, nil, err
	}

	var cache *lookupcache.Cache
	if cfg.Cache.Enabled {
		cache = lookupcache.NewCache(cfg.Cache.Path, logger)
	}

	res := resolver.New(searcher, resolver.WithCache(cache), resolver.WithLogger(logger))
	pipeline := scan.New(recognizer, res,
		scan.WithConcurrency(cfg.Scan.Concurrency),
		scan.WithLogger(logger))

	store, err := ledger.Open(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}

	cards := api.NewCardService(pipeline, store, cfg.Server.MaxBatchSize,
		api.WithCache(cache),
		api.WithNotifier(notifications.NewService(cfg)),
		api.WithLogger(logger))
	closeStore := func() {
		if err := store.Close(); err != nil {
			logger.Warn("close ledger", logging.Error(err))
		}
	}
	return cards, closeStore, nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
