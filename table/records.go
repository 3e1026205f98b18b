package table

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/danthegoodman1/gojsonutils"
)

var ErrNotFlatMap = errors.New("not a flat map")

// FromRecords builds a table from JSON objects. Nested objects are flattened
// so their leaves become columns. Columns appear in first-seen order, keys
// within one record sorted. Keys a record lacks become empty cells.
func FromRecords(records []map[string]any) (*Table, error) {
	var columns []string
	colIdx := map[string]int{}
	flatRows := make([]map[string]any, 0, len(records))

	for i, rec := range records {
		flat, err := gojsonutils.Flatten(rec, nil)
		if err != nil {
			return nil, fmt.Errorf("error in gojsonutils.Flatten for record %d: %w", i, err)
		}
		flatMap, ok := flat.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: record %d", ErrNotFlatMap, i)
		}
		keys := make([]string, 0, len(flatMap))
		for k := range flatMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, exists := colIdx[k]; !exists {
				colIdx[k] = len(columns)
				columns = append(columns, k)
			}
		}
		flatRows = append(flatRows, flatMap)
	}

	rows := make([][]string, len(flatRows))
	for i, fr := range flatRows {
		row := make([]string, len(columns))
		for k, v := range fr {
			row[colIdx[k]] = cellString(v)
		}
		rows[i] = row
	}
	if len(columns) == 0 {
		return nil, ErrNoHeader
	}
	return New(columns, rows)
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
