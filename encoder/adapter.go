package encoder

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/danthegoodman1/credittree/table"
	"github.com/rs/zerolog"
)

type Outcome string

const (
	// OutcomeConsistent means the persisted registry from the model's
	// training run encoded the input.
	OutcomeConsistent Outcome = "consistent"
	// OutcomeFallback means no registry was available and encoders were
	// fitted on the input batch alone. Codes may not match what the model
	// learned.
	OutcomeFallback Outcome = "fallback"
)

type (
	// Adapter turns input tables into model features. It holds no mutable
	// state and is safe for concurrent use.
	Adapter struct {
		schema   Schema
		registry *Registry
	}

	Result struct {
		// Features is the column order of each X row.
		Features []string
		X        [][]float64
		Outcome  Outcome
		// UnseenRows marks rows where at least one category was replaced
		// with UnseenCode.
		UnseenRows     *roaring.Bitmap
		UnseenByColumn map[string]int
		Warnings       []string
	}
)

// NewAdapter builds an adapter for a model's schema. A nil registry puts the
// adapter in fallback mode.
func NewAdapter(schema Schema, reg *Registry) *Adapter {
	return &Adapter{
		schema: Schema{
			Features: append([]string(nil), schema.Features...),
			Target:   schema.Target,
			Numeric:  slices.Clone(schema.Numeric),
		},
		registry: reg,
	}
}

func (a *Adapter) Schema() Schema {
	return a.schema
}

// Degraded is true when the adapter has no registry to encode with.
func (a *Adapter) Degraded() bool {
	return a.registry == nil
}

// CheckSchema requires every feature column and allows no extras beyond the
// target.
func CheckSchema(schema Schema, t *table.Table) error {
	var mismatch SchemaMismatchError
	for _, f := range schema.Features {
		if !t.HasColumn(f) {
			mismatch.Missing = append(mismatch.Missing, f)
		}
	}
	expected := make(map[string]struct{}, len(schema.Features)+1)
	for _, f := range schema.Features {
		expected[f] = struct{}{}
	}
	if schema.Target != "" {
		expected[schema.Target] = struct{}{}
	}
	for _, c := range t.Columns {
		if _, ok := expected[c]; !ok {
			mismatch.Extra = append(mismatch.Extra, c)
		}
	}
	if len(mismatch.Missing) > 0 || len(mismatch.Extra) > 0 {
		return &mismatch
	}
	return nil
}

// Transform encodes t in schema feature order, dropping the target. Novel
// categories become UnseenCode and are reported on the result. Any cell
// that cannot be encoded fails the whole call.
func (a *Adapter) Transform(ctx context.Context, t *table.Table) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	if err := CheckSchema(a.schema, t); err != nil {
		return nil, err
	}

	res := &Result{
		Features:       append([]string(nil), a.schema.Features...),
		Outcome:        OutcomeConsistent,
		UnseenRows:     roaring.New(),
		UnseenByColumn: map[string]int{},
	}

	reg := a.registry
	if reg == nil {
		var err error
		reg, err = fitColumns(t, a.schema.Features, a.schema.Numeric)
		if err != nil {
			return nil, fmt.Errorf("error fitting fallback encoders: %w", err)
		}
		res.Outcome = OutcomeFallback
		res.Warnings = append(res.Warnings, "no encoder registry was found for this model; categories were encoded from this upload alone, so predictions may not match what the model learned")
		logger.Warn().Int("rows", t.Len()).Msg("encoder registry missing, fitted fallback encoders on input batch")
	}

	idx := make([]int, len(a.schema.Features))
	for j, f := range a.schema.Features {
		idx[j] = t.ColumnIndex(f)
	}

	res.X = make([][]float64, t.Len())
	for i, row := range t.Rows {
		x := make([]float64, len(idx))
		for j, f := range a.schema.Features {
			cell := row[idx[j]]
			v, seen, err := reg.encodeCell(f, cell)
			if err != nil {
				return nil, &BadValueError{Column: f, Row: i, Value: cell, cause: err}
			}
			if !seen {
				res.UnseenRows.Add(uint32(i))
				res.UnseenByColumn[f]++
			}
			x[j] = v
		}
		res.X[i] = x
	}

	if n := res.UnseenRows.GetCardinality(); n > 0 {
		var cols []string
		for _, f := range a.schema.Features {
			if c := res.UnseenByColumn[f]; c > 0 {
				cols = append(cols, fmt.Sprintf("%s (%d)", f, c))
			}
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d row(s) contain categories not seen during training in %s; they were encoded as %d and their predictions are lower-confidence", n, strings.Join(cols, ", "), UnseenCode))
		logger.Debug().Uint64("rows", n).Interface("columns", res.UnseenByColumn).Msg("unseen categories encoded as sentinel")
	}

	return res, nil
}

func (r *Result) Degraded() bool {
	return r.Outcome == OutcomeFallback
}

// LowConfidence reports whether the prediction for row i should not be
// trusted at face value.
func (r *Result) LowConfidence(i int) bool {
	return r.Degraded() || r.UnseenRows.Contains(uint32(i))
}
