package scan

import (
	"cardscan/internal/card"
	"cardscan/internal/services"
)

// Status classifies the result of scanning one image.
type Status string

const (
	StatusOK            Status = "ok"
	StatusNoText        Status = "no_text"
	StatusNotFound      Status = "not_found"
	StatusProviderError Status = "provider_error"
	StatusInvalidImage  Status = "invalid_image"
)

// Image is one uploaded card photo.
type Image struct {
	Filename string
	Data     []byte
}

// Outcome is the result for the image at Index.
type Outcome struct {
	Index    int
	Filename string
	Status   Status
	// Candidate is the recognized text, empty when recognition failed.
	Candidate string
	// MatchScore compares Candidate with the resolved name, in [0, 1].
	MatchScore float64
	Card       *card.Record
	Err        error
}

// Retryable reports whether a later attempt could succeed.
func (o Outcome) Retryable() bool {
	return o.Status == StatusProviderError
}

// OK reports whether the image resolved to a card.
func (o Outcome) OK() bool {
	return o.Status == StatusOK && o.Card != nil
}

// StatusFor maps an error onto an outcome status.
func StatusFor(err error) Status {
	switch services.Kind(err) {
	case "ok":
		return StatusOK
	case "no_text":
		return StatusNoText
	case "not_found":
		return StatusNotFound
	case "invalid_image":
		return StatusInvalidImage
	default:
		return StatusProviderError
	}
}

// Successes returns the resolved cards in input order, dropping failures.
func Successes(outcomes []Outcome) []card.Record {
	cards := make([]card.Record, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			cards = append(cards, *o.Card)
		}
	}
	return cards
}

// Failed counts the outcomes that did not resolve to a card.
func Failed(outcomes []Outcome) int {
	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	return failed
}
