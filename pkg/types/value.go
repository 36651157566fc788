package types

import (
	"strconv"
	"strings"
)

// Kind classifies the values stored in a column.
type Kind int

// Value kinds.
const (
	KindMissing Kind = iota
	KindText
	KindNumber
	KindDate
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "missing"
	}
}

// missingKey is the canonical form of a missing value. It cannot collide with
// a cell read from CSV because empty cells are always missing.
const missingKey = "\x00"

// Value is a single cell. Raw holds the text as loaded, except for dates,
// whose Raw is always the canonical YYYY-MM-DD form.
type Value struct {
	Kind Kind
	Raw  string
}

// Missing returns the missing value.
func Missing() Value { return Value{Kind: KindMissing} }

// Text returns a text value, or missing when s is empty.
func Text(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{Kind: KindText, Raw: s}
}

// Number returns a number value holding s verbatim, or missing when s is empty.
func Number(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{Kind: KindNumber, Raw: s}
}

// Date returns a date value. The caller must pass a normalized date.
func Date(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{Kind: KindDate, Raw: s}
}

// IsMissing reports whether v carries no data.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String returns the text written back to CSV.
func (v Value) String() string { return v.Raw }

// Float parses the value as a float64.
func (v Value) Float() (float64, bool) {
	if v.IsMissing() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Raw), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Canonical returns the form used to compare values across tables. Numeric
// text compares by value, so "72" and "72.0" are equal whatever the column
// kind is on either side.
func (v Value) Canonical() string {
	switch v.Kind {
	case KindMissing:
		return missingKey
	case KindDate:
		return v.Raw
	}
	if f, ok := v.Float(); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v.Raw
}

// Equal reports whether two values compare equal in canonical form.
func (v Value) Equal(o Value) bool { return v.Canonical() == o.Canonical() }
