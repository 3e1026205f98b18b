package encoder

import (
	"errors"
	"fmt"
	"math"

	"github.com/danthegoodman1/credittree/table"
)

type (
	// Registry holds one ColumnEncoder per text feature column of a training
	// table. It is fitted once per training run and persisted with the models
	// fitted alongside it; Version ties the two together.
	Registry struct {
		Version string
		Target  string
		// Features is the training column order minus the target. Models
		// expect their input in exactly this order.
		Features []string
		Encoders map[string]*ColumnEncoder
		// Labels encodes a text target. Nil when the target is numeric.
		Labels *ColumnEncoder `json:",omitempty"`
	}

	// Schema is the feature layout a model was trained on. Numeric lists the
	// features that were numbers at training time; nil means unknown.
	Schema struct {
		Features []string
		Target   string
		Numeric  []string
	}
)

var (
	ErrEmptyTable      = errors.New("training table has no rows")
	ErrTargetNotFound  = errors.New("target column not found")
	ErrBadTarget       = errors.New("target value is not an integer class")
	ErrCorruptRegistry = errors.New("corrupt encoder registry")
)

// FitRegistry fits an encoder for every text column of t other than target.
// Numeric columns get no entry. t is read, never written.
func FitRegistry(t *table.Table, target string) (*Registry, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	if target != "" && !t.HasColumn(target) {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, target)
	}

	features := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c != target {
			features = append(features, c)
		}
	}

	reg, err := fitColumns(t, features, nil)
	if err != nil {
		return nil, err
	}
	reg.Target = target

	if target != "" {
		values, err := t.Column(target)
		if err != nil {
			return nil, fmt.Errorf("error in t.Column: %w", err)
		}
		if !table.IsNumeric(values) {
			reg.Labels = FitColumnEncoder(target, values)
		}
	}
	return reg, nil
}

// fitColumns fits an encoder per text column. A column listed in numeric
// never gets one; with numeric nil the kind is read off the values.
func fitColumns(t *table.Table, features []string, numeric []string) (*Registry, error) {
	reg := &Registry{
		Features: append([]string(nil), features...),
		Encoders: map[string]*ColumnEncoder{},
	}
	known := make(map[string]bool, len(numeric))
	for _, c := range numeric {
		known[c] = true
	}
	for _, c := range features {
		values, err := t.Column(c)
		if err != nil {
			return nil, fmt.Errorf("error in t.Column: %w", err)
		}
		if numeric != nil {
			if known[c] {
				continue
			}
		} else if table.IsNumeric(values) {
			continue
		}
		reg.Encoders[c] = FitColumnEncoder(c, values)
	}
	return reg, nil
}

// WithVersion returns a shallow copy stamped with version. Encoders are
// shared; they are immutable.
func (r *Registry) WithVersion(version string) *Registry {
	cp := *r
	cp.Version = version
	return &cp
}

func (r *Registry) Schema() Schema {
	return Schema{Features: append([]string(nil), r.Features...), Target: r.Target, Numeric: r.NumericFeatures()}
}

// NumericFeatures lists the features without an encoder, in feature order.
func (r *Registry) NumericFeatures() []string {
	out := make([]string, 0, len(r.Features))
	for _, f := range r.Features {
		if r.Encoders[f] == nil {
			out = append(out, f)
		}
	}
	return out
}

// Encoder returns the encoder for a text column, or nil for numeric columns.
func (r *Registry) Encoder(column string) *ColumnEncoder {
	return r.Encoders[column]
}

// Validate checks the invariants a loaded registry must satisfy.
func (r *Registry) Validate() error {
	if len(r.Features) == 0 {
		return fmt.Errorf("%w: no features", ErrCorruptRegistry)
	}
	for name, e := range r.Encoders {
		if e == nil || e.Column() != name {
			return fmt.Errorf("%w: encoder for %q is keyed incorrectly", ErrCorruptRegistry, name)
		}
		if name == r.Target {
			return fmt.Errorf("%w: target %q has a feature encoder", ErrCorruptRegistry, name)
		}
	}
	return nil
}

// EncodeTraining encodes the table the registry was fitted on into a feature
// matrix in Features order and class labels. A registry without a target
// returns nil labels.
func (r *Registry) EncodeTraining(t *table.Table) ([][]float64, []int, error) {
	idx := make([]int, len(r.Features))
	for j, f := range r.Features {
		idx[j] = t.ColumnIndex(f)
		if idx[j] < 0 {
			return nil, nil, &SchemaMismatchError{Missing: []string{f}}
		}
	}

	X := make([][]float64, t.Len())
	for i, row := range t.Rows {
		x := make([]float64, len(r.Features))
		for j, f := range r.Features {
			v, _, err := r.encodeCell(f, row[idx[j]])
			if err != nil {
				return nil, nil, &BadValueError{Column: f, Row: i, Value: row[idx[j]], cause: err}
			}
			x[j] = v
		}
		X[i] = x
	}

	if r.Target == "" {
		return X, nil, nil
	}
	targets, err := t.Column(r.Target)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrTargetNotFound, r.Target)
	}
	y := make([]int, len(targets))
	for i, v := range targets {
		if r.Labels != nil {
			code, ok := r.Labels.Code(v)
			if !ok {
				return nil, nil, fmt.Errorf("%w: row %d has label %q", ErrBadTarget, i, v)
			}
			y[i] = code
			continue
		}
		f, err := table.ParseNumeric(v)
		if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
			return nil, nil, fmt.Errorf("%w: row %d has %q", ErrBadTarget, i, v)
		}
		y[i] = int(f)
	}
	return X, y, nil
}

// LabelFor maps a predicted class back to the target's text value. ok is
// false when the target was numeric or the class is unknown.
func (r *Registry) LabelFor(class int) (string, bool) {
	if r.Labels == nil {
		return "", false
	}
	return r.Labels.Category(class)
}

// encodeCell returns the feature value for one cell. seen is false only for
// a text category the encoder was not fitted on.
func (r *Registry) encodeCell(column, cell string) (float64, bool, error) {
	if e := r.Encoders[column]; e != nil {
		code, ok := e.Code(cell)
		return float64(code), ok, nil
	}
	f, err := table.ParseNumeric(cell)
	if err != nil {
		return 0, true, ErrBadValue
	}
	return f, true, nil
}
