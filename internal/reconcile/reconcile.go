// Package reconcile merges an authoritative source table into an
// accumulating destination table with upsert-by-key semantics.
//
// The policy is source wins, full replace: every destination row whose merge
// key appears in the source is dropped, and every source row is appended
// after the retained destination rows. Destination-wins merging, where only
// net-new source keys are added, is not offered.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/bullpen/pkg/types"
)

// keySep joins canonical key values; it cannot appear in CSV text cells.
const keySep = "\x1f"

// Stats counts the rows seen and produced by one reconciliation.
type Stats struct {
	SourceRows      int `json:"source_rows" yaml:"source_rows"`
	DestinationRows int `json:"destination_rows" yaml:"destination_rows"`
	Superseded      int `json:"superseded" yaml:"superseded"`
	Retained        int `json:"retained" yaml:"retained"`
	Result          int `json:"result" yaml:"result"`
}

// SelectKey chooses the merge key for a source table. An explicit override
// must name source columns. Otherwise the canonical key is used when the
// source has all of its columns, and every source column is used when it
// does not.
func SelectKey(source *types.Table, canonical, override types.MergeKey) (types.MergeKey, error) {
	if len(override) > 0 {
		if missing := source.Schema.Missing(override...); len(missing) > 0 {
			return nil, &types.SchemaMismatchError{
				Key:           override,
				Missing:       missing,
				SourceColumns: source.Schema.Names(),
			}
		}
		return override, nil
	}
	if len(canonical) > 0 && source.Schema.Has(canonical...) {
		return canonical, nil
	}
	if len(source.Schema) == 0 {
		return nil, fmt.Errorf("%w: source has no columns", types.ErrEmptyMergeKey)
	}
	return types.MergeKey(source.Schema.Names()), nil
}

// Reconcile returns the destination rows whose key is absent from source,
// followed by all source rows, each part in its original order. Neither
// input is modified.
//
// A key that covers every source column is a fallback key: the result
// schema is the destination columns followed by any new source columns.
// Under a narrower key both tables must hold the same column set.
func Reconcile(source, destination *types.Table, key types.MergeKey) (*types.Table, Stats, error) {
	if err := key.Validate(); err != nil {
		return nil, Stats{}, err
	}
	if source == nil {
		source = &types.Table{}
	}
	if destination == nil {
		destination = &types.Table{}
	}
	if missing := source.Schema.Missing(key...); len(missing) > 0 {
		return nil, Stats{}, &types.SchemaMismatchError{
			Key:           key,
			Missing:       missing,
			SourceColumns: source.Schema.Names(),
		}
	}

	dateCols := dateColumns(source.Schema, destination.Schema)
	src, err := normalizeDates(source, dateCols)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("source: %w", err)
	}
	dst, err := normalizeDates(destination, dateCols)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("destination: %w", err)
	}

	stats := Stats{SourceRows: src.Len(), DestinationRows: dst.Len()}
	switch {
	case dst.Empty():
		stats.Result = src.Len()
		return src, stats, nil
	case src.Empty():
		stats.Retained = dst.Len()
		stats.Result = dst.Len()
		return dst, stats, nil
	}

	schema, err := resultSchema(src, dst, key)
	if err != nil {
		return nil, Stats{}, err
	}

	incoming := make(map[string]struct{}, src.Len())
	for _, r := range src.Rows {
		incoming[keyOf(src, r, key)] = struct{}{}
	}

	out := &types.Table{Schema: schema, Rows: make([]types.Row, 0, dst.Len()+src.Len())}
	for _, r := range dst.Rows {
		if _, ok := incoming[keyOf(dst, r, key)]; ok {
			stats.Superseded++
			continue
		}
		out.Rows = append(out.Rows, dst.ProjectRow(r, schema))
	}
	stats.Retained = len(out.Rows)
	for _, r := range src.Rows {
		out.Rows = append(out.Rows, src.ProjectRow(r, schema))
	}
	stats.Result = out.Len()
	return out, stats, nil
}

// keyOf returns the canonical key of r. Key columns absent from t are
// missing, so such rows never match a source row.
func keyOf(t *types.Table, r types.Row, key types.MergeKey) string {
	parts := make([]string, len(key))
	for i, col := range key {
		parts[i] = t.Value(r, col).Canonical()
	}
	return strings.Join(parts, keySep)
}

func resultSchema(src, dst *types.Table, key types.MergeKey) (types.Schema, error) {
	fallback := len(key) >= len(src.Schema)
	if !fallback && !src.Schema.SameColumns(dst.Schema) {
		return nil, &types.SchemaMismatchError{
			Key:                key,
			SourceColumns:      src.Schema.Names(),
			DestinationColumns: dst.Schema.Names(),
		}
	}

	schema := make(types.Schema, 0, len(dst.Schema)+len(src.Schema))
	for _, c := range dst.Schema {
		if i := src.Schema.Index(c.Name); i >= 0 {
			c.Kind = mergeKind(c.Kind, src.Schema[i].Kind)
		}
		schema = append(schema, c)
	}
	for _, c := range src.Schema {
		if dst.Schema.Index(c.Name) < 0 {
			schema = append(schema, c)
		}
	}
	return schema, nil
}

func mergeKind(a, b types.Kind) types.Kind {
	switch {
	case a == b:
		return a
	case a == types.KindDate || b == types.KindDate:
		return types.KindDate
	default:
		return types.KindText
	}
}

func dateColumns(schemas ...types.Schema) map[string]bool {
	cols := make(map[string]bool)
	for _, s := range schemas {
		for _, c := range s {
			if c.Kind == types.KindDate {
				cols[c.Name] = true
			}
		}
	}
	return cols
}

// normalizeDates returns a copy of t with every date column rewritten in
// canonical form.
func normalizeDates(t *types.Table, dateCols map[string]bool) (*types.Table, error) {
	out := t.Clone()
	for c, col := range out.Schema {
		if !dateCols[col.Name] {
			continue
		}
		out.Schema[c].Kind = types.KindDate
		for i, r := range out.Rows {
			if c >= len(r) || r[c].IsMissing() {
				continue
			}
			d, err := types.NormalizeDate(r[c].Raw)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", col.Name, i+1, err)
			}
			r[c] = types.Date(d)
		}
	}
	return out, nil
}
