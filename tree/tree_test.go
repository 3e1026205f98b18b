package tree

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feature 0 alone decides the class and feature 1 is noise.
func separable(n int, seed int64) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		a := rnd.Float64()*10 - 5
		X[i] = []float64{a, rnd.Float64()}
		if a > 1 {
			y[i] = 1
		}
	}
	return X, y
}

func TestFitSeparable(t *testing.T) {
	X, y := separable(300, 1)
	for _, c := range []Criterion{Gini, Entropy} {
		t.Run(string(c), func(t *testing.T) {
			clf := NewClassifier(WithCriterion(c))
			require.NoError(t, clf.Fit(X, y))

			pred, err := clf.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, y, pred)

			assert.Equal(t, 1, clf.Depth())
			assert.Equal(t, 2, clf.Leaves())
			assert.Equal(t, 2, clf.NFeatures())
			assert.Equal(t, []int{0, 1}, clf.Classes())

			imp := clf.FeatureImportances()
			assert.InDelta(t, 1.0, imp[0]+imp[1], 1e-9)
			assert.InDelta(t, 1.0, imp[0], 1e-9)
		})
	}
}

func TestFitValidation(t *testing.T) {
	clf := NewClassifier()
	assert.ErrorIs(t, clf.Fit(nil, nil), ErrEmptyX)
	assert.ErrorIs(t, clf.Fit([][]float64{{1}}, []int{1, 2}), ErrLengthMismatch)
	assert.ErrorIs(t, clf.Fit([][]float64{{1}, {1, 2}}, []int{1, 2}), ErrInconsistentWidth)
	assert.ErrorIs(t, clf.Fit([][]float64{{1}, {math.Inf(1)}}, []int{0, 1}), ErrNonFinite)

	bad := NewClassifier(WithCriterion("log_loss"))
	assert.ErrorIs(t, bad.Fit([][]float64{{1}}, []int{1}), ErrUnknownCriterion)
}

func TestPredictBeforeFit(t *testing.T) {
	_, err := NewClassifier().Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.Equal(t, 0, NewClassifier().Depth())
	assert.Equal(t, 0, NewClassifier().Leaves())
}

func TestPredictWidthMismatch(t *testing.T) {
	X, y := separable(50, 2)
	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))

	_, err := clf.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrInconsistentWidth)
}

func TestMaxDepthLimitsTree(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	X := make([][]float64, 200)
	y := make([]int, 200)
	for i := range X {
		X[i] = []float64{rnd.Float64(), rnd.Float64()}
		y[i] = rnd.Intn(3)
	}
	clf := NewClassifier(WithMaxDepth(3))
	require.NoError(t, clf.Fit(X, y))
	assert.LessOrEqual(t, clf.Depth(), 3)
	assert.LessOrEqual(t, clf.Leaves(), 8)
}

func TestHugeValuesKeepFiniteThresholds(t *testing.T) {
	X := [][]float64{{1e308}, {1e308}, {1.7e308}, {1.7e308}}
	y := []int{0, 0, 1, 1}
	for _, c := range []Criterion{Gini, Entropy} {
		clf := NewClassifier(WithCriterion(c), WithMaxDepth(5))
		require.NoError(t, clf.Fit(X, y))

		pred, err := clf.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, y, pred, c)
		assert.Equal(t, 1, clf.Depth(), c)

		out := clf.ExportText([]string{"Credit amount"}, 0)
		assert.NotContains(t, out, "Inf", out)
		assert.False(t, math.IsInf(clf.root.threshold(), 0))
	}
}

func TestNaNSortsBelowEverything(t *testing.T) {
	nan := math.NaN()
	X := [][]float64{{1}, {2}, {nan}, {10}, {11}, {nan}}
	y := []int{0, 0, 0, 1, 1, 0}

	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))

	pred, err := clf.Predict([][]float64{{nan}, {12}, {-1e300}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, pred)
}

func TestNegativeSentinelGoesLeft(t *testing.T) {
	// category codes 0,1,2 with class decided by code >= 1
	X := [][]float64{{0}, {0}, {1}, {2}, {1}, {2}}
	y := []int{0, 0, 1, 1, 1, 1}
	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))

	pred, err := clf.Predict([][]float64{{-1}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, pred)
}

func TestPureLabelsGiveLoneLeaf(t *testing.T) {
	X := [][]float64{{0}, {3}, {7}}
	y := []int{1, 1, 1}
	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))

	pred, err := clf.Predict([][]float64{{-5}, {100}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, pred)
	assert.Equal(t, 0, clf.Depth())
	assert.Equal(t, 1, clf.Leaves())
	assert.Equal(t, []float64{0}, clf.FeatureImportances())
	assert.Equal(t, "|--- class: 1\n", clf.ExportText(nil, 0))
}

func TestConstantFeaturesPickMajority(t *testing.T) {
	X := [][]float64{{0}, {0}, {0}, {0}}
	y := []int{1, 1, 1, 0}
	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))

	pred, err := clf.Predict([][]float64{{0}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, pred)
	assert.Equal(t, 0, clf.Depth())
}

func TestNoFeatures(t *testing.T) {
	clf := NewClassifier()
	require.NoError(t, clf.Fit([][]float64{{}, {}, {}}, []int{0, 1, 1}))

	pred, err := clf.Predict([][]float64{{}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, pred)
}

func TestDeterministic(t *testing.T) {
	X, y := separable(200, 9)
	a := NewClassifier(WithCriterion(Entropy))
	b := NewClassifier(WithCriterion(Entropy))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	assert.Equal(t, a.ExportText(nil, 0), b.ExportText(nil, 0))
}

func TestBinaryRoundTrip(t *testing.T) {
	X, y := separable(200, 4)
	X[3][1] = math.NaN()
	clf := NewClassifier(WithCriterion(Entropy), WithMaxDepth(4))
	require.NoError(t, clf.Fit(X, y))

	b, err := clf.MarshalBinary()
	require.NoError(t, err)

	var back Classifier
	require.NoError(t, back.UnmarshalBinary(b))

	want, err := clf.Predict(X)
	require.NoError(t, err)
	got, err := back.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, Entropy, back.Criterion)
	assert.Equal(t, clf.FeatureImportances(), back.FeatureImportances())
	assert.Equal(t, clf.Depth(), back.Depth())
	assert.Equal(t, clf.ExportText(nil, 0), back.ExportText(nil, 0))

	_, err = NewClassifier().MarshalBinary()
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestBinaryRoundTripLoneLeaf(t *testing.T) {
	clf := NewClassifier()
	require.NoError(t, clf.Fit([][]float64{{1}, {2}}, []int{0, 0}))
	b, err := clf.MarshalBinary()
	require.NoError(t, err)

	var back Classifier
	require.NoError(t, back.UnmarshalBinary(b))
	pred, err := back.Predict([][]float64{{5}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, pred)
}

func TestExportText(t *testing.T) {
	X, y := separable(100, 5)
	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))

	out := clf.ExportText([]string{"Age", "noise"}, 0)
	assert.True(t, strings.HasPrefix(out, "|--- Age <  "), out)
	assert.Contains(t, out, "|--- Age >= ")
	assert.Contains(t, out, "|   |--- class: 0")
	assert.Contains(t, out, "|   |--- class: 1")
}

func TestExportTextTruncates(t *testing.T) {
	// class flips at every step so the tree is a chain of splits
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []int{0, 1, 0, 1, 0, 1}
	clf := NewClassifier()
	require.NoError(t, clf.Fit(X, y))
	require.Greater(t, clf.Depth(), 1)

	full := clf.ExportText(nil, 0)
	short := clf.ExportText(nil, 1)
	assert.NotContains(t, full, "truncated")
	assert.Contains(t, short, "truncated branch of depth")
	assert.Less(t, len(short), len(full))
}

func TestParseCriterion(t *testing.T) {
	c, err := ParseCriterion("entropy")
	require.NoError(t, err)
	assert.Equal(t, Entropy, c)

	_, err = ParseCriterion("mse")
	assert.ErrorIs(t, err, ErrUnknownCriterion)
}
