package card

import (
	"strconv"
	"strings"
)

// Column names in persisted order.
const (
	ColumnName         = "name"
	ColumnColour       = "colour"
	ColumnType         = "type"
	ColumnCreatureType = "creature_type"
	ColumnManaCost     = "mana_cost"
	ColumnPower        = "power"
	ColumnToughness    = "toughness"
	ColumnAbilities    = "abilities"
	ColumnOracleText   = "oracle_text"
	ColumnQuantity     = "quantity"
)

// Columns lists every ledger column in the fixed header order.
var Columns = []string{
	ColumnName,
	ColumnColour,
	ColumnType,
	ColumnCreatureType,
	ColumnManaCost,
	ColumnPower,
	ColumnToughness,
	ColumnAbilities,
	ColumnOracleText,
	ColumnQuantity,
}

// RequiredColumns must be present on a record before it enters the ledger.
var RequiredColumns = []string{ColumnName, ColumnType, ColumnColour, ColumnManaCost}

// Record is one card's collection-relevant attributes.
type Record struct {
	Name         string  `json:"name"`
	Colour       string  `json:"colour"`
	Type         string  `json:"type"`
	CreatureType string  `json:"creature_type"`
	ManaCost     *string `json:"mana_cost"`
	Power        *string `json:"power"`
	Toughness    *string `json:"toughness"`
	Abilities    string  `json:"abilities"`
	OracleText   string  `json:"oracle_text"`
	Quantity     int     `json:"quantity"`
}

// Text returns a pointer to s, used for the nullable string columns.
func Text(s string) *string {
	return &s
}

// Field returns the textual value of the named column. Unknown columns and
// absent nullable values yield an empty string.
func (r Record) Field(column string) string {
	switch column {
	case ColumnName:
		return r.Name
	case ColumnColour:
		return r.Colour
	case ColumnType:
		return r.Type
	case ColumnCreatureType:
		return r.CreatureType
	case ColumnManaCost:
		return deref(r.ManaCost)
	case ColumnPower:
		return deref(r.Power)
	case ColumnToughness:
		return deref(r.Toughness)
	case ColumnAbilities:
		return r.Abilities
	case ColumnOracleText:
		return r.OracleText
	case ColumnQuantity:
		return strconv.Itoa(r.Quantity)
	default:
		return ""
	}
}

// Row renders the record as one ledger row in column order.
func (r Record) Row() []string {
	row := make([]string, len(Columns))
	for i, column := range Columns {
		row[i] = r.Field(column)
	}
	return row
}

// FromRow parses a ledger row laid out according to header. Empty cells of
// nullable columns become nil.
func FromRow(header, row []string) (Record, error) {
	var rec Record
	for i, column := range header {
		if i >= len(row) {
			break
		}
		value := row[i]
		switch strings.TrimSpace(column) {
		case ColumnName:
			rec.Name = value
		case ColumnColour:
			rec.Colour = value
		case ColumnType:
			rec.Type = value
		case ColumnCreatureType:
			rec.CreatureType = value
		case ColumnManaCost:
			rec.ManaCost = nullIfEmpty(value)
		case ColumnPower:
			rec.Power = nullIfEmpty(value)
		case ColumnToughness:
			rec.Toughness = nullIfEmpty(value)
		case ColumnAbilities:
			rec.Abilities = value
		case ColumnOracleText:
			rec.OracleText = value
		case ColumnQuantity:
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			qty, err := parseQuantity(value)
			if err != nil {
				return Record{}, err
			}
			rec.Quantity = qty
		}
	}
	return rec, nil
}

// IsColumn reports whether name is a known ledger column.
func IsColumn(name string) bool {
	for _, column := range Columns {
		if column == name {
			return true
		}
	}
	return false
}

// parseQuantity accepts integers as well as the "2.0" form some spreadsheet
// tools write back.
func parseQuantity(value string) (int, error) {
	if qty, err := strconv.Atoi(value); err == nil {
		return qty, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
