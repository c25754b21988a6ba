package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cardscan/internal/card"
	"cardscan/internal/services"
)

// fakeRecognizer treats image bytes as the recognized text. Reserved payloads
// trigger failures.
type fakeRecognizer struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	f.calls.Add(1)
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	text := string(image)
	switch text {
	case "blank":
		return "", services.Wrap(services.ErrNoTextDetected, "vision", "annotate", "", nil)
	case "corrupt":
		return "", services.Wrap(services.ErrInvalidImage, "vision", "annotate", "bad image", nil)
	}
	return text, nil
}

type fakeResolver struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeResolver) Resolve(_ context.Context, candidate string) (card.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, candidate)
	f.mu.Unlock()
	switch {
	case strings.HasPrefix(candidate, "unknown"):
		return card.Record{}, services.Wrap(services.ErrCardNotFound, "scryfall", "named", candidate, nil)
	case strings.HasPrefix(candidate, "flaky"):
		return card.Record{}, services.Wrap(services.ErrProviderUnavailable, "scryfall", "named", "503", nil)
	}
	return card.Record{Name: candidate, Type: "Creature — Elf Druid", Colour: "G", ManaCost: card.Text("{G}")}, nil
}

func images(payloads ...string) []Image {
	out := make([]Image, len(payloads))
	for i, p := range payloads {
		out[i] = Image{Filename: p + ".jpg", Data: []byte(p)}
	}
	return out
}

func TestScanBatchRejectsOversizeBeforeRecognition(t *testing.T) {
	rec := &fakeRecognizer{}
	p := New(rec, &fakeResolver{})

	_, err := p.ScanBatch(context.Background(), images("a", "b", "c"), 2)
	if !errors.Is(err, services.ErrBatchTooLarge) {
		t.Fatalf("expected batch too large, got %v", err)
	}
	if rec.calls.Load() != 0 {
		t.Fatalf("expected no recognition calls, got %d", rec.calls.Load())
	}
}

func TestScanBatchAlignsOutcomesWithInput(t *testing.T) {
	p := New(&fakeRecognizer{}, &fakeResolver{}, WithConcurrency(3))

	outcomes, err := p.ScanBatch(context.Background(),
		images("Llanowar Elves", "blank", "unknown card", "flaky", "corrupt", "Forest"), 10)
	if err != nil {
		t.Fatalf("ScanBatch returned error: %v", err)
	}
	want := []Status{StatusOK, StatusNoText, StatusNotFound, StatusProviderError, StatusInvalidImage, StatusOK}
	if len(outcomes) != len(want) {
		t.Fatalf("expected %d outcomes, got %d", len(want), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Index != i {
			t.Errorf("outcome %d has index %d", i, o.Index)
		}
		if o.Status != want[i] {
			t.Errorf("outcome %d status = %s, want %s (err=%v)", i, o.Status, want[i], o.Err)
		}
		if o.OK() != (o.Err == nil) {
			t.Errorf("outcome %d: OK=%v but err=%v", i, o.OK(), o.Err)
		}
	}
	if !outcomes[3].Retryable() || outcomes[2].Retryable() {
		t.Fatalf("only provider errors should be retryable")
	}
	if outcomes[0].MatchScore != 1 {
		t.Errorf("expected exact match score, got %v", outcomes[0].MatchScore)
	}
	if outcomes[2].Candidate != "unknown card" {
		t.Errorf("expected candidate recorded on resolve failure, got %q", outcomes[2].Candidate)
	}

	cards := Successes(outcomes)
	if len(cards) != 2 || cards[0].Name != "Llanowar Elves" || cards[1].Name != "Forest" {
		t.Fatalf("unexpected successes: %+v", cards)
	}
	if Failed(outcomes) != 4 {
		t.Fatalf("expected 4 failures, got %d", Failed(outcomes))
	}
}

func TestScanBatchAllFailuresYieldsEmptySuccesses(t *testing.T) {
	p := New(&fakeRecognizer{}, &fakeResolver{})
	outcomes, err := p.ScanBatch(context.Background(), images("blank", "unknown"), 10)
	if err != nil {
		t.Fatalf("ScanBatch returned error: %v", err)
	}
	if got := Successes(outcomes); len(got) != 0 {
		t.Fatalf("expected no successes, got %+v", got)
	}
}

func TestScanBatchEmpty(t *testing.T) {
	p := New(&fakeRecognizer{}, &fakeResolver{})
	outcomes, err := p.ScanBatch(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("ScanBatch returned error: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestScanBatchBoundsConcurrency(t *testing.T) {
	rec := &fakeRecognizer{delay: 20 * time.Millisecond}
	p := New(rec, &fakeResolver{}, WithConcurrency(2))

	if _, err := p.ScanBatch(context.Background(), images("a", "b", "c", "d", "e", "f"), 10); err != nil {
		t.Fatalf("ScanBatch returned error: %v", err)
	}
	if peak := rec.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent recognitions, saw %d", peak)
	}
	if rec.calls.Load() != 6 {
		t.Fatalf("expected 6 recognition calls, got %d", rec.calls.Load())
	}
}

func TestStatusFor(t *testing.T) {
	if got := StatusFor(services.Wrap(services.ErrConfiguration, "vision", "configure", "", nil)); got != StatusProviderError {
		t.Fatalf("configuration failures should surface as provider errors, got %s", got)
	}
	if got := StatusFor(nil); got != StatusOK {
		t.Fatalf("nil error should map to ok, got %s", got)
	}
}
