package predictor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/danthegoodman1/credittree/artifact"
	"github.com/danthegoodman1/credittree/encoder"
	"github.com/danthegoodman1/credittree/table"
	"github.com/danthegoodman1/credittree/tree"
	"github.com/rs/zerolog"
)

const (
	PredictionColumn      = "Prediction"
	PredictionLabelColumn = "PredictionLabel"
)

var ErrUnknownModel = errors.New("unknown model")

type (
	// Predictor serves the models of one loaded bundle. It is read-only after
	// New and safe for concurrent use.
	Predictor struct {
		loaded  *artifact.Loaded
		adapter *encoder.Adapter
		labels  map[int]string
	}

	Option func(*Predictor)

	Prediction struct {
		// Table is the input with the prediction columns appended.
		Table     *table.Table
		Criterion tree.Criterion
		Version   string
		Classes   []int

		Outcome        encoder.Outcome
		UnseenRows     *roaring.Bitmap
		UnseenByColumn map[string]int
		Warnings       []string
	}

	FeatureImportance struct {
		Feature    string
		Importance float64
	}

	ModelInfo struct {
		Criterion   tree.Criterion
		Version     string
		Depth       int
		Leaves      int
		NFeatures   int
		Importances []FeatureImportance
		Metrics     artifact.Metrics
	}
)

// WithClassLabels names numeric classes for display. Labels stored with a
// text target take precedence.
func WithClassLabels(labels map[int]string) Option {
	return func(p *Predictor) {
		p.labels = labels
	}
}

// ParseClassLabels turns "good,bad" into {0: "good", 1: "bad"}.
func ParseClassLabels(s string) map[int]string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	out := map[int]string{}
	for i, l := range strings.Split(s, ",") {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

func New(loaded *artifact.Loaded, opts ...Option) *Predictor {
	p := &Predictor{
		loaded:  loaded,
		adapter: encoder.NewAdapter(loaded.Schema(), loaded.Registry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Predictor) Version() string {
	return p.loaded.Manifest.Version
}

// Degraded is true when serving without the training run's encoder registry.
func (p *Predictor) Degraded() bool {
	return p.adapter.Degraded()
}

func (p *Predictor) Schema() encoder.Schema {
	return p.adapter.Schema()
}

func (p *Predictor) Criteria() []tree.Criterion {
	return append([]tree.Criterion(nil), p.loaded.Manifest.Criteria...)
}

// Predict encodes t and runs the named model over it. t is not modified.
func (p *Predictor) Predict(ctx context.Context, t *table.Table, criterion tree.Criterion) (*Prediction, error) {
	logger := zerolog.Ctx(ctx)
	clf, ok := p.loaded.Models[criterion]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, criterion)
	}

	res, err := p.adapter.Transform(ctx, t)
	if err != nil {
		return nil, err
	}

	classes, err := clf.Predict(res.X)
	if err != nil {
		return nil, fmt.Errorf("error in clf.Predict: %w", err)
	}

	values := make([]string, len(classes))
	for i, c := range classes {
		values[i] = strconv.Itoa(c)
	}
	out, err := t.WithColumn(PredictionColumn, values)
	if err != nil {
		return nil, fmt.Errorf("error adding %s column: %w", PredictionColumn, err)
	}

	if labels, ok := p.labelsFor(classes); ok {
		out, err = out.WithColumn(PredictionLabelColumn, labels)
		if err != nil {
			return nil, fmt.Errorf("error adding %s column: %w", PredictionLabelColumn, err)
		}
	}

	logger.Debug().
		Str("criterion", string(criterion)).
		Int("rows", len(classes)).
		Str("outcome", string(res.Outcome)).
		Uint64("unseenRows", res.UnseenRows.GetCardinality()).
		Msg("predicted")

	return &Prediction{
		Table:          out,
		Criterion:      criterion,
		Version:        p.Version(),
		Classes:        classes,
		Outcome:        res.Outcome,
		UnseenRows:     res.UnseenRows,
		UnseenByColumn: res.UnseenByColumn,
		Warnings:       res.Warnings,
	}, nil
}

func (p *Predictor) labelsFor(classes []int) ([]string, bool) {
	reg := p.loaded.Registry
	if (reg == nil || reg.Labels == nil) && len(p.labels) == 0 {
		return nil, false
	}
	out := make([]string, len(classes))
	for i, c := range classes {
		if reg != nil && reg.Labels != nil {
			out[i], _ = reg.LabelFor(c)
			continue
		}
		out[i] = p.labels[c]
	}
	return out, true
}

// Models describes every loaded model in manifest order.
func (p *Predictor) Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(p.loaded.Manifest.Criteria))
	for _, c := range p.loaded.Manifest.Criteria {
		info, _ := p.Model(c)
		out = append(out, info)
	}
	return out
}

func (p *Predictor) Model(c tree.Criterion) (ModelInfo, error) {
	clf, ok := p.loaded.Models[c]
	if !ok {
		return ModelInfo{}, fmt.Errorf("%w: %q", ErrUnknownModel, c)
	}
	features := p.loaded.Manifest.Features
	imp := clf.FeatureImportances()
	fi := make([]FeatureImportance, len(features))
	for i, f := range features {
		fi[i] = FeatureImportance{Feature: f}
		if i < len(imp) {
			fi[i].Importance = imp[i]
		}
	}
	return ModelInfo{
		Criterion:   c,
		Version:     p.Version(),
		Depth:       clf.Depth(),
		Leaves:      clf.Leaves(),
		NFeatures:   clf.NFeatures(),
		Importances: fi,
		Metrics:     p.loaded.Manifest.Metrics[c],
	}, nil
}

// SortedImportances returns importances highest first, ties by feature name.
func (m ModelInfo) SortedImportances() []FeatureImportance {
	out := slices.Clone(m.Importances)
	slices.SortStableFunc(out, func(a, b FeatureImportance) int {
		switch {
		case a.Importance > b.Importance:
			return -1
		case a.Importance < b.Importance:
			return 1
		default:
			return strings.Compare(a.Feature, b.Feature)
		}
	})
	return out
}
