package encoder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrBadValue       = errors.New("value cannot be encoded")
)

// SchemaMismatchError lists the columns that keep an input from matching the
// model's feature layout. It unwraps to ErrSchemaMismatch.
type SchemaMismatchError struct {
	Missing []string
	Extra   []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Extra, ", "))
	}
	return ErrSchemaMismatch.Error() + ": " + strings.Join(parts, "; ")
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// BadValueError is a cell in a numeric column that does not parse.
type BadValueError struct {
	Column string
	Row    int
	Value  string
	cause  error
}

func (e *BadValueError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot encode %q as a number", e.Column, e.Row+1, e.Value)
}

func (e *BadValueError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return ErrBadValue
}
