// Package csvtable reads and writes flat comma-separated tables with a
// header row, inferring an explicit schema at load time.
package csvtable

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/bullpen/pkg/types"
)

// utf8BOM is stripped from the first header cell; spreadsheet exports add it.
const utf8BOM = "\ufeff"

// Options control schema inference.
type Options struct {
	// DateColumns are column names treated as dates in addition to
	// "Game Date" and "Date".
	DateColumns []string
}

// LoadSource reads a mandatory source table. A missing file is a
// *types.NotFoundError.
func LoadSource(path string, opts Options) (*types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.NotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// LoadDestination reads an optional destination table. A missing file
// yields an empty table with no schema.
func LoadDestination(path string, opts Options) (*types.Table, error) {
	t, err := LoadSource(path, opts)
	if errors.Is(err, types.ErrNotFound) {
		return &types.Table{}, nil
	}
	return t, err
}

// Read parses CSV from r. The first record names the columns. Input with no
// header at all yields an empty table with no schema.
func Read(r io.Reader, opts Options) (*types.Table, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return &types.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header = cleanHeader(header)
	if err := checkDuplicates(header); err != nil {
		return nil, err
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	schema := inferSchema(header, records, opts)
	t := &types.Table{Schema: schema, Rows: make([]types.Row, 0, len(records))}
	for i, rec := range records {
		row := make(types.Row, len(schema))
		for c, col := range schema {
			v, err := parseCell(col, rec[c])
			if err != nil {
				// Line numbers are 1-based and count the header.
				return nil, fmt.Errorf("column %q line %d: %w", col.Name, i+2, err)
			}
			row[c] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Write encodes t as CSV with a header row. Missing values are empty cells.
func Write(w io.Writer, t *types.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Schema.Names()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	rec := make([]string, len(t.Schema))
	for _, row := range t.Rows {
		for i := range rec {
			if i < len(row) {
				rec[i] = row[i].String()
			} else {
				rec[i] = ""
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Encode returns the CSV encoding of t.
func Encode(t *types.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func checkDuplicates(header []string) error {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return fmt.Errorf("%w: %q", types.ErrDuplicateColumn, h)
		}
		seen[h] = true
	}
	return nil
}

// inferSchema classifies each column. Date columns are chosen by name; a
// column is numeric when it has at least one value and every non-empty
// value parses as a float.
func inferSchema(header []string, records [][]string, opts Options) types.Schema {
	schema := make(types.Schema, len(header))
	for c, name := range header {
		kind := types.KindText
		switch {
		case types.IsDateColumn(name, opts.DateColumns):
			kind = types.KindDate
		case numericColumn(records, c):
			kind = types.KindNumber
		}
		schema[c] = types.Column{Name: name, Kind: kind}
	}
	return schema
}

func numericColumn(records [][]string, c int) bool {
	seen := false
	for _, rec := range records {
		s := strings.TrimSpace(rec[c])
		if s == "" {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func parseCell(col types.Column, raw string) (types.Value, error) {
	switch col.Kind {
	case types.KindDate:
		d, err := types.NormalizeDate(raw)
		if err != nil {
			return types.Value{}, err
		}
		return types.Date(d), nil
	case types.KindNumber:
		return types.Number(strings.TrimSpace(raw)), nil
	default:
		return types.Text(raw), nil
	}
}
