package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrMalformedCSV = errors.New("malformed csv")

// ReadCSV reads a header row followed by data rows. Blank header cells are
// named "Unnamed: <i>" so an exported index column still lines up with the
// training schema.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedCSV, err.Error())
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		header[i] = h
	}

	t, err := New(header, records[1:])
	if err != nil {
		return nil, fmt.Errorf("error in table.New: %w", err)
	}
	return t, nil
}

func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("error writing rows: %w", err)
	}
	return nil
}
