package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cardscan/internal/batch"
	"cardscan/internal/card"
	"cardscan/internal/logging"
	"cardscan/internal/services"
	"cardscan/internal/textutil"
)

const (
	stageRecognize = "recognize"
	stageResolve   = "resolve"
)

// Recognizer extracts a candidate card name from image bytes.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Resolver turns a candidate name into a card record.
type Resolver interface {
	Resolve(ctx context.Context, candidate string) (card.Record, error)
}

// Pipeline scans batches of card photos.
type Pipeline struct {
	recognizer  Recognizer
	resolver    Resolver
	concurrency int
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds the number of images processed at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs a Pipeline.
func New(recognizer Recognizer, resolver Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		recognizer:  recognizer,
		resolver:    resolver,
		concurrency: 4,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "scan")
	return p
}

// ScanBatch processes images and returns one outcome per image in input
// order. The only error returned is services.ErrBatchTooLarge, raised before
// any image is touched. A correlation ID is generated unless ctx already
// carries one.
func (p *Pipeline) ScanBatch(ctx context.Context, images []Image, maxSize int) ([]Outcome, error) {
	if err := batch.CheckSize(len(images), maxSize); err != nil {
		return nil, err
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, p.logger)
	start := time.Now()

	outcomes := make([]Outcome, len(images))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, img := range images {
		g.Go(func() error {
			outcomes[i] = p.scanOne(services.WithItemIndex(ctx, i), i, img)
			return nil
		})
	}
	_ = g.Wait()

	failed := Failed(outcomes)
	logger.Info("scan batch completed",
		logging.String(logging.FieldEventType, "scan_batch_completed"),
		logging.Int("submitted", len(images)),
		logging.Int("resolved", len(images)-failed),
		logging.Int("failed", failed),
		logging.Duration("duration", time.Since(start)))
	return outcomes, nil
}

func (p *Pipeline) scanOne(ctx context.Context, index int, img Image) Outcome {
	outcome := Outcome{Index: index, Filename: img.Filename}

	candidate, err := p.recognizer.Recognize(services.WithStage(ctx, stageRecognize), img.Data)
	if err != nil {
		return p.fail(services.WithStage(ctx, stageRecognize), outcome, err)
	}
	outcome.Candidate = candidate

	rec, err := p.resolver.Resolve(services.WithStage(ctx, stageResolve), candidate)
	if err != nil {
		return p.fail(services.WithStage(ctx, stageResolve), outcome, err)
	}
	outcome.Status = StatusOK
	outcome.Card = &rec
	outcome.MatchScore = textutil.NameSimilarity(candidate, rec.Name)

	logging.WithContext(ctx, p.logger).Debug("image resolved",
		logging.String("filename", img.Filename),
		logging.String("candidate", candidate),
		logging.String("card_name", rec.Name),
		logging.Any("match_score", outcome.MatchScore))
	return outcome
}

func (p *Pipeline) fail(ctx context.Context, outcome Outcome, err error) Outcome {
	outcome.Status = StatusFor(err)
	outcome.Err = err
	logging.WithContext(ctx, p.logger).Warn("image scan failed",
		logging.String(logging.FieldEventType, "scan_item_failed"),
		logging.String("filename", outcome.Filename),
		logging.ErrorKind(err),
		logging.Bool("retryable", outcome.Retryable()),
		logging.Error(err))
	return outcome
}
