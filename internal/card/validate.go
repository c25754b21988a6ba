package card

import (
	"fmt"
	"strings"

	"cardscan/internal/services"
)

// MissingFieldsError reports the required columns a candidate lacked.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%v: missing required fields: %s", services.ErrInvalidRecord, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == services.ErrInvalidRecord
}

// UnreadableFieldsError reports columns whose submitted values were neither
// text, numbers, nor null.
type UnreadableFieldsError struct {
	Fields []string
}

func (e *UnreadableFieldsError) Error() string {
	return fmt.Sprintf("%v: unreadable fields: %s", services.ErrInvalidRecord, strings.Join(e.Fields, ", "))
}

func (e *UnreadableFieldsError) Is(target error) bool {
	return target == services.ErrInvalidRecord
}

// Validate checks that every required column was supplied and returns the
// record ready for insertion: quantity forced to 1 and empty nullable
// columns cleared to null, matching how an empty ledger cell reads back.
func Validate(c Candidate) (Record, error) {
	if c.decodeErr != nil {
		return Record{}, fmt.Errorf("%w: %v", services.ErrInvalidRecord, c.decodeErr)
	}

	var missing []string
	for _, column := range RequiredColumns {
		if !c.Has(column) {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return Record{}, &MissingFieldsError{Fields: missing}
	}
	var unread []string
	for _, column := range Columns {
		if c.unread[column] {
			unread = append(unread, column)
		}
	}
	if len(unread) > 0 {
		return Record{}, &UnreadableFieldsError{Fields: unread}
	}

	rec := c.Record
	rec.Quantity = 1
	rec.ManaCost = nullIfFalsy(rec.ManaCost)
	rec.Power = nullIfFalsy(rec.Power)
	rec.Toughness = nullIfFalsy(rec.Toughness)
	return rec, nil
}

func nullIfFalsy(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
