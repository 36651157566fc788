package types

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical textual date form.
const DateLayout = "2006-01-02"

// dateLayouts lists the accepted input layouts, tried in order. Fractional
// seconds after the seconds field are accepted by time.Parse.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"20060102",
}

// NormalizeDate rewrites s in canonical YYYY-MM-DD form. Timestamps keep the
// calendar date of their own offset. An empty string normalizes to itself.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// dateColumnNames are the column names recognized as dates without
// configuration, compared after folding case and separators.
var dateColumnNames = map[string]bool{
	"game date": true,
	"date":      true,
}

// IsDateColumn reports whether a column holds dates. Columns listed in
// configured match exactly; otherwise only "Game Date" and "Date" match,
// ignoring case and treating underscores and hyphens as spaces. Other
// columns, such as timestamps, keep their text unchanged.
func IsDateColumn(name string, configured []string) bool {
	for _, c := range configured {
		if c == name {
			return true
		}
	}
	folded := strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(strings.TrimSpace(name)))
	return dateColumnNames[strings.Join(strings.Fields(folded), " ")]
}
