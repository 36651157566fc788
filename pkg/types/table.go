package types

import "strings"

// Column describes one column of a Schema.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Schema is the ordered column list of a Table.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether every name is a column of s.
func (s Schema) Has(names ...string) bool {
	return len(s.Missing(names...)) == 0
}

// Missing returns the names that are not columns of s, in argument order.
func (s Schema) Missing(names ...string) []string {
	var missing []string
	for _, n := range names {
		if s.Index(n) < 0 {
			missing = append(missing, n)
		}
	}
	return missing
}

// SameColumns reports whether s and o hold the same set of column names,
// regardless of order and kind.
func (s Schema) SameColumns(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	return s.Has(o.Names()...)
}

// Row is one record, aligned with its table's Schema.
type Row []Value

// Table is an ordered sequence of rows sharing one schema. The zero Table is
// empty and has no schema.
type Table struct {
	Schema Schema
	Rows   []Row
}

// NewTable returns a table with the given schema and rows.
func NewTable(schema Schema, rows ...Row) *Table {
	return &Table{Schema: schema, Rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Value returns the named cell of r, or missing when the column is absent.
func (t *Table) Value(r Row, column string) Value {
	i := t.Schema.Index(column)
	if i < 0 || i >= len(r) {
		return Missing()
	}
	return r[i]
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return &Table{}
	}
	out := &Table{
		Schema: append(Schema(nil), t.Schema...),
		Rows:   make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// ProjectRow reorders r, a row of t, into schema. Columns that t lacks are
// missing.
func (t *Table) ProjectRow(r Row, schema Schema) Row {
	out := make(Row, len(schema))
	for i, c := range schema {
		out[i] = t.Value(r, c.Name)
	}
	return out
}

// MergeKey is an ordered, non-empty list of column names identifying the
// same logical record across tables.
type MergeKey []string

// CanonicalKey is the game identity shared by every prediction file.
var CanonicalKey = MergeKey{"Game Date", "Away Team", "Home Team"}

// Validate checks that k names at least one column.
func (k MergeKey) Validate() error {
	if len(k) == 0 {
		return ErrEmptyMergeKey
	}
	return nil
}

// String joins the key columns for logs and the run ledger.
func (k MergeKey) String() string { return strings.Join(k, ",") }

// Equal reports whether k and o name the same columns in the same order.
func (k MergeKey) Equal(o MergeKey) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}
