package tree

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sjwhitworth/golearn/trees"
)

type Criterion string

const (
	// Gini and Entropy double as the golearn criterion names.
	Gini    Criterion = "gini"
	Entropy Criterion = "entropy"
)

var (
	ErrEmptyX            = errors.New("tree: empty X")
	ErrLengthMismatch    = errors.New("tree: X and y length mismatch")
	ErrInconsistentWidth = errors.New("tree: inconsistent number of features in X rows")
	ErrNonFinite         = errors.New("tree: infinite feature value")
	ErrNotFitted         = errors.New("tree: classifier is not fitted")
	ErrUnknownCriterion  = errors.New("tree: unknown criterion")
)

func ParseCriterion(s string) (Criterion, error) {
	switch Criterion(s) {
	case Gini, Entropy:
		return Criterion(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCriterion, s)
	}
}

// Classifier wraps a golearn CART tree. Rows with x < threshold go left,
// and missing values (NaN) sort below every real value, so they go left too.
type Classifier struct {
	MaxDepth  int // 0 means unlimited
	Criterion Criterion

	cart        *trees.CARTDecisionTreeClassifier
	root        *node
	classes     []int
	nFeatures   int
	importances []float64
}

type Option func(*Classifier)

func WithCriterion(c Criterion) Option { return func(t *Classifier) { t.Criterion = c } }
func WithMaxDepth(d int) Option        { return func(t *Classifier) { t.MaxDepth = d } }

func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{Criterion: Gini}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fit trains on X (n x p) and integer class labels y. Categorical features
// must already be encoded as numbers.
func (t *Classifier) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return ErrEmptyX
	}
	if len(y) != len(X) {
		return ErrLengthMismatch
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return ErrInconsistentWidth
		}
		for j, v := range X[i] {
			if math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d feature %d", ErrNonFinite, i, j)
			}
		}
	}
	if _, err := ParseCriterion(string(t.Criterion)); err != nil {
		return err
	}

	t.classes = distinct(y)
	t.nFeatures = p
	t.importances = make([]float64, p)
	if p == 0 {
		t.cart = nil
		t.root = &node{LeftLabel: int64(majority(y, t.classes))}
		return nil
	}

	grid, err := newGrid(X, y, p)
	if err != nil {
		return fmt.Errorf("error in newGrid: %w", err)
	}
	cart := trees.NewDecisionTreeClassifier(string(t.Criterion), golearnDepth(t.MaxDepth), labelsOf(t.classes))
	if err = cart.Fit(grid); err != nil {
		return fmt.Errorf("error in CART Fit: %w", err)
	}
	root, err := mirror(cart)
	if err != nil {
		return err
	}
	t.cart = cart
	t.root = root
	t.importances = t.featureImportances(X, y)
	return nil
}

// Predict returns the predicted class for each row.
func (t *Classifier) Predict(X [][]float64) ([]int, error) {
	if t.root == nil {
		return nil, ErrNotFitted
	}
	for i := range X {
		if len(X[i]) != t.nFeatures {
			return nil, fmt.Errorf("row %d: %w: expected %d features, got %d", i, ErrInconsistentWidth, t.nFeatures, len(X[i]))
		}
	}
	out := make([]int, len(X))
	if len(X) == 0 {
		return out, nil
	}
	if t.cart == nil || !t.root.Split {
		// golearn has no notion of a lone leaf
		for i := range out {
			out[i] = int(t.root.LeftLabel)
		}
		return out, nil
	}
	grid, err := newGrid(X, nil, t.nFeatures)
	if err != nil {
		return nil, fmt.Errorf("error in newGrid: %w", err)
	}
	for i, c := range t.cart.Predict(grid) {
		out[i] = int(c)
	}
	return out, nil
}

func (t *Classifier) Fitted() bool {
	return t.root != nil
}

func (t *Classifier) Classes() []int {
	return append([]int(nil), t.classes...)
}

func (t *Classifier) NFeatures() int {
	return t.nFeatures
}

// FeatureImportances is the normalised total impurity decrease per feature.
// It sums to 1 when the tree has at least one split.
func (t *Classifier) FeatureImportances() []float64 {
	return append([]float64(nil), t.importances...)
}

// Depth is the length of the longest root-to-leaf path. A lone leaf is 0.
func (t *Classifier) Depth() int {
	return t.root.depth()
}

func (t *Classifier) Leaves() int {
	if t.root == nil {
		return 0
	}
	return t.root.leaves()
}

// golearnDepth maps our "0 is unlimited" onto golearn's -1.
func golearnDepth(d int) int64 {
	if d <= 0 {
		return -1
	}
	return int64(d)
}

func distinct(y []int) []int {
	set := map[int]struct{}{}
	for _, v := range y {
		set[v] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// majority breaks ties toward the lowest class, like golearn does.
func majority(y []int, classes []int) int {
	counts := map[int]int{}
	for _, v := range y {
		counts[v]++
	}
	best, bestN := 0, -1
	for _, c := range classes {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}
