package table

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/xitongsys/parquet-go/writer"
)

type (
	ParquetJSONSchema struct {
		Tag    string               `json:",omitempty"`
		Fields []*ParquetJSONSchema `json:",omitempty"`
	}

	parquetColumn struct {
		source  int
		name    string
		numeric bool
	}
)

// ParquetSchema derives a parquet-go JSON schema from the table: numeric
// columns become OPTIONAL DOUBLE, everything else OPTIONAL UTF8. Names are
// sanitised into identifiers; the returned names are the keys rows must use.
func ParquetSchema(t *Table) (string, []string, error) {
	cols := parquetColumns(t)
	fields := make([]*ParquetJSONSchema, 0, len(cols))
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		var tag string
		if c.numeric {
			tag = "type=DOUBLE, name=" + c.name + ", repetitiontype=OPTIONAL"
		} else {
			tag = "type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN, name=" + c.name + ", repetitiontype=OPTIONAL"
		}
		fields = append(fields, &ParquetJSONSchema{Tag: tag})
		names = append(names, c.name)
	}
	pjs := ParquetJSONSchema{
		Tag:    "name=parquet_go_root, repetitiontype=REQUIRED",
		Fields: fields,
	}
	b, err := json.Marshal(pjs)
	if err != nil {
		return "", nil, fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), names, nil
}

// WriteParquet writes t as a single parquet file to w.
func WriteParquet(w io.Writer, t *Table) error {
	schema, _, err := ParquetSchema(t)
	if err != nil {
		return fmt.Errorf("error in ParquetSchema: %w", err)
	}
	cols := parquetColumns(t)

	pw, err := writer.NewJSONWriterFromWriter(schema, w, 4)
	if err != nil {
		return fmt.Errorf("error in NewJSONWriterFromWriter: %w", err)
	}

	for i, row := range t.Rows {
		rec := make(map[string]any, len(cols))
		for _, c := range cols {
			cell := row[c.source]
			if IsMissing(cell) {
				rec[c.name] = nil
				continue
			}
			if c.numeric {
				f, err := ParseNumeric(cell)
				if err != nil || math.IsNaN(f) {
					rec[c.name] = nil
					continue
				}
				rec[c.name] = f
			} else {
				rec[c.name] = cell
			}
		}
		rowBytes, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("error in json.Marshal of row %d: %w", i, err)
		}
		if err = pw.Write(string(rowBytes)); err != nil {
			return fmt.Errorf("error in pw.Write for row %d: %w", i, err)
		}
	}
	if err = pw.WriteStop(); err != nil {
		return fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	return nil
}

func parquetColumns(t *Table) []parquetColumn {
	used := map[string]int{}
	cols := make([]parquetColumn, 0, len(t.Columns))
	for i, name := range t.Columns {
		values, _ := t.Column(name)
		pn := parquetName(name)
		if n, taken := used[pn]; taken {
			used[pn] = n + 1
			pn = fmt.Sprintf("%s_%d", pn, n+1)
		} else {
			used[pn] = 0
		}
		cols = append(cols, parquetColumn{source: i, name: pn, numeric: IsNumeric(values)})
	}
	return cols
}

func parquetName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	s := b.String()
	if s == "" || !unicode.IsLetter(rune(s[0])) {
		s = "C" + s
	}
	return s
}
