package card

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Candidate is a record submitted for merging together with the set of keys
// the submitter actually supplied.
type Candidate struct {
	Record    Record
	present   map[string]bool
	unread    map[string]bool
	decodeErr error
}

// Malformed wraps a submitted element that could not be decoded at all, so
// it fails validation on its own instead of rejecting its batch.
func Malformed(err error) Candidate {
	return Candidate{decodeErr: err}
}

// NewCandidate wraps a record produced inside the system. Every column counts
// as present.
func NewCandidate(rec Record) Candidate {
	present := make(map[string]bool, len(Columns))
	for _, column := range Columns {
		present[column] = true
	}
	return Candidate{Record: rec, present: present}
}

// Has reports whether the submitter supplied column.
func (c Candidate) Has(column string) bool {
	return c.present[column]
}

// UnmarshalJSON decodes a card object. Text columns accept strings, numbers,
// or null; any other value is remembered and fails Validate. Quantity is
// never trusted, so an unreadable one decodes as zero.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("card must be a JSON object")
	}

	c.present = make(map[string]bool, len(raw))
	c.unread = nil
	c.decodeErr = nil
	c.Record = Record{}
	for key, value := range raw {
		c.present[key] = true
		if key == ColumnQuantity {
			if qty, err := decodeQuantity(value); err == nil {
				c.Record.Quantity = qty
			}
			continue
		}
		text, err := decodeText(value)
		if err != nil {
			if IsColumn(key) {
				if c.unread == nil {
					c.unread = make(map[string]bool)
				}
				c.unread[key] = true
			}
			continue
		}
		c.assign(key, text)
	}
	return nil
}

// MarshalJSON encodes the wrapped record.
func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Record)
}

func (c *Candidate) assign(key string, text *string) {
	value := ""
	if text != nil {
		value = *text
	}
	switch key {
	case ColumnName:
		c.Record.Name = value
	case ColumnColour:
		c.Record.Colour = value
	case ColumnType:
		c.Record.Type = value
	case ColumnCreatureType:
		c.Record.CreatureType = value
	case ColumnManaCost:
		c.Record.ManaCost = text
	case ColumnPower:
		c.Record.Power = text
	case ColumnToughness:
		c.Record.Toughness = text
	case ColumnAbilities:
		c.Record.Abilities = value
	case ColumnOracleText:
		c.Record.OracleText = value
	}
}

func decodeText(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return &s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil, err
		}
		s := n.String()
		return &s, nil
	default:
		return nil, fmt.Errorf("unsupported value %s", strings.TrimSpace(string(trimmed)))
	}
}

func decodeQuantity(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, err
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
