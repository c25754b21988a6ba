package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"cardscan/internal/batch"
	"cardscan/internal/card"
	"cardscan/internal/ledger"
	"cardscan/internal/logging"
	"cardscan/internal/lookupcache"
	"cardscan/internal/notifications"
	"cardscan/internal/scan"
	"cardscan/internal/services"
)

// Scanner runs the scan pipeline for a batch of images.
type Scanner interface {
	ScanBatch(ctx context.Context, images []scan.Image, maxSize int) ([]scan.Outcome, error)
}

// CardService exposes scan and ledger operations returning API DTOs.
type CardService struct {
	scanner      Scanner
	store        ledger.Store
	cache        *lookupcache.Cache
	notifier     notifications.Service
	maxBatchSize int
	logger       *slog.Logger
}

// CardServiceOption configures a CardService.
type CardServiceOption func(*CardService)

// WithCache exposes the lookup cache through the service.
func WithCache(cache *lookupcache.Cache) CardServiceOption {
	return func(s *CardService) {
		s.cache = cache
	}
}

// WithNotifier publishes scan and confirm summaries.
func WithNotifier(notifier notifications.Service) CardServiceOption {
	return func(s *CardService) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CardServiceOption {
	return func(s *CardService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCardService constructs a CardService. maxBatchSize bounds both scan and
// confirm requests.
func NewCardService(scanner Scanner, store ledger.Store, maxBatchSize int, opts ...CardServiceOption) *CardService {
	s := &CardService{
		scanner:      scanner,
		store:        store,
		maxBatchSize: maxBatchSize,
		notifier:     notifications.NewService(nil),
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "cards")
	return s
}

// MaxBatchSize returns the configured batch limit.
func (s *CardService) MaxBatchSize() int {
	return s.maxBatchSize
}

// Scan recognizes and resolves images. The only error is
// services.ErrBatchTooLarge; per-image failures live in the outcomes.
func (s *CardService) Scan(ctx context.Context, images []scan.Image) (ScanResponse, error) {
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	outcomes, err := s.scanner.ScanBatch(ctx, images, s.maxBatchSize)
	if err != nil {
		return ScanResponse{}, err
	}
	resp := ScanResponse{
		RequestID: requestID,
		Submitted: len(images),
		Failed:    scan.Failed(outcomes),
		Outcomes:  FromOutcomes(outcomes),
	}
	if err := s.notifier.NotifyScanCompleted(ctx, requestID, resp.Submitted, resp.Failed); err != nil {
		s.notifyFailed(ctx, err)
	}
	return resp, nil
}

// Confirm merges candidates into the ledger in submission order after
// checking the batch limit.
func (s *CardService) Confirm(ctx context.Context, candidates []card.Candidate) ([]MergeResult, error) {
	if err := batch.CheckSize(len(candidates), s.maxBatchSize); err != nil {
		return nil, err
	}
	results := ledger.MergeBatch(ctx, s.store, candidates)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logging.WithContext(services.WithItemIndex(ctx, r.Index), s.logger).Warn("card merge failed",
				logging.String(logging.FieldEventType, "merge_item_failed"),
				logging.ErrorKind(r.Err),
				logging.Error(r.Err))
		}
	}
	logging.WithContext(ctx, s.logger).Info("confirm batch merged",
		logging.String(logging.FieldEventType, "confirm_batch_completed"),
		logging.Int("submitted", len(candidates)),
		logging.Int("merged", len(candidates)-failed),
		logging.Int("failed", failed))
	if len(candidates) > 0 {
		if err := s.notifier.NotifyCardsAdded(ctx, len(candidates)-failed, failed); err != nil {
			s.notifyFailed(ctx, err)
		}
	}
	return FromMergeResults(results), nil
}

func (s *CardService) notifyFailed(ctx context.Context, err error) {
	logging.WithContext(ctx, s.logger).Warn("notification failed",
		logging.String(logging.FieldEventType, "notification_failed"),
		logging.Error(err))
}

// List returns ledger rows matching filter; never nil.
func (s *CardService) List(ctx context.Context, filter ledger.Filter) ([]card.Record, error) {
	rows, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []card.Record{}
	}
	return rows, nil
}

// LedgerTotals returns the number of distinct rows and the summed quantity.
func (s *CardService) LedgerTotals(ctx context.Context) (rows, cards int, err error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range records {
		cards += rec.Quantity
	}
	return len(records), cards, nil
}

// CacheEntries lists the lookup cache.
func (s *CardService) CacheEntries() CacheListResponse {
	return CacheListResponse{
		Enabled: s.cache.Enabled(),
		Path:    s.cache.Path(),
		Entries: FromCacheEntries(s.cache.List()),
	}
}

// ClearCache empties the lookup cache and reports how many entries it held.
func (s *CardService) ClearCache() (int, error) {
	count := s.cache.Count()
	if err := s.cache.Clear(); err != nil {
		return 0, err
	}
	return count, nil
}
