package encoder

import (
	"encoding/json"
	"fmt"
)

// UnseenCode is substituted for a category the encoder never saw while
// fitting. Fitted codes are always >= 0, so it cannot collide with one.
// Trees trained on these codes only learn thresholds >= 0.5, which sends
// UnseenCode down the lower branch of every split on that column; nothing
// in training gives it a meaning of its own.
const UnseenCode = -1

// ColumnEncoder maps the categories of one text column to contiguous codes
// in the order they were first seen. It has no mutators once fitted.
type ColumnEncoder struct {
	column     string
	categories []string
	codes      map[string]int
}

// FitColumnEncoder assigns codes 0..k-1 in first-seen order.
func FitColumnEncoder(column string, values []string) *ColumnEncoder {
	e := &ColumnEncoder{column: column, codes: map[string]int{}}
	for _, v := range values {
		if _, ok := e.codes[v]; !ok {
			e.codes[v] = len(e.categories)
			e.categories = append(e.categories, v)
		}
	}
	return e
}

func (e *ColumnEncoder) Column() string {
	return e.column
}

// Code returns the fitted code for value, or UnseenCode and false.
func (e *ColumnEncoder) Code(value string) (int, bool) {
	c, ok := e.codes[value]
	if !ok {
		return UnseenCode, false
	}
	return c, true
}

// Category is the inverse of Code.
func (e *ColumnEncoder) Category(code int) (string, bool) {
	if code < 0 || code >= len(e.categories) {
		return "", false
	}
	return e.categories[code], true
}

func (e *ColumnEncoder) Len() int {
	return len(e.categories)
}

// Categories returns a copy, index == code.
func (e *ColumnEncoder) Categories() []string {
	return append([]string(nil), e.categories...)
}

type columnEncoderJSON struct {
	Column     string
	Categories []string
}

func (e *ColumnEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(columnEncoderJSON{Column: e.column, Categories: e.categories})
}

func (e *ColumnEncoder) UnmarshalJSON(b []byte) error {
	var raw columnEncoderJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	codes := make(map[string]int, len(raw.Categories))
	for i, c := range raw.Categories {
		if _, dup := codes[c]; dup {
			return fmt.Errorf("%w: column %q lists category %q twice", ErrCorruptRegistry, raw.Column, c)
		}
		codes[c] = i
	}
	e.column = raw.Column
	e.categories = raw.Categories
	e.codes = codes
	return nil
}
