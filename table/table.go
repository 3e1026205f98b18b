package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type (
	// Table is a header plus string cells. Cells stay raw text until a
	// consumer decides how to type a column, so one parse path serves both
	// training and inference.
	Table struct {
		Columns []string
		Rows    [][]string
	}
)

var (
	ErrNoHeader        = errors.New("table has no header")
	ErrRaggedRow       = errors.New("row length does not match header")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrColumnNotFound  = errors.New("column not found")
	ErrNonFinite       = errors.New("number is not finite")
)

var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"NaN":  {},
	"nan":  {},
	"null": {},
}

// New validates the header and row widths. Rows are used as given.
func New(columns []string, rows [][]string) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoHeader
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, exists := seen[c]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		seen[c] = struct{}{}
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrRaggedRow, i, len(r), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns -1 when the column is absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

func (t *Table) Clone() *Table {
	cols := append([]string(nil), t.Columns...)
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return &Table{Columns: cols, Rows: rows}
}

// Head returns a copy of the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) || n < 0 {
		n = len(t.Rows)
	}
	h := &Table{Columns: append([]string(nil), t.Columns...), Rows: make([][]string, n)}
	for i := 0; i < n; i++ {
		h.Rows[i] = append([]string(nil), t.Rows[i]...)
	}
	return h
}

// WithColumn returns a copy of t with the column set to values, replacing it
// if it already exists and appending it otherwise.
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("%w: column %q has %d values, table has %d rows", ErrRaggedRow, name, len(values), len(t.Rows))
	}
	out := t.Clone()
	idx := out.ColumnIndex(name)
	if idx < 0 {
		out.Columns = append(out.Columns, name)
		for i := range out.Rows {
			out.Rows[i] = append(out.Rows[i], values[i])
		}
		return out, nil
	}
	for i := range out.Rows {
		out.Rows[i][idx] = values[i]
	}
	return out, nil
}

// Drop returns a copy of t without the named column. Missing columns are ignored.
func (t *Table) Drop(name string) *Table {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return t.Clone()
	}
	out := &Table{Columns: make([]string, 0, len(t.Columns)-1), Rows: make([][]string, len(t.Rows))}
	out.Columns = append(out.Columns, t.Columns[:idx]...)
	out.Columns = append(out.Columns, t.Columns[idx+1:]...)
	for i, r := range t.Rows {
		row := make([]string, 0, len(r)-1)
		row = append(row, r[:idx]...)
		row = append(row, r[idx+1:]...)
		out.Rows[i] = row
	}
	return out
}

func IsMissing(s string) bool {
	_, ok := missingMarkers[strings.TrimSpace(s)]
	return ok
}

// IsNumeric reports whether every non-missing cell is written as a number.
// A column with no values at all counts as numeric, like an all-NaN column.
// Infinite and out-of-range numbers still count so that ParseNumeric can
// reject them loudly rather than the column turning into categories.
func IsNumeric(values []string) bool {
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return false
		}
	}
	return true
}

// ParseNumeric parses a cell, mapping missing markers to NaN. Values that
// are not finite fail with ErrNonFinite.
func ParseNumeric(s string) (float64, error) {
	if IsMissing(s) {
		return math.NaN(), nil
	}
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNonFinite, s)
	}
	if err != nil {
		return 0, err
	}
	return f, nil
}
