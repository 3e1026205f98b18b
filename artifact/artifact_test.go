package artifact

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danthegoodman1/credittree/encoder"
	"github.com/danthegoodman1/credittree/table"
	"github.com/danthegoodman1/credittree/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trainCSV = `Age,Sex,Housing,Credit amount,status
67,male,own,1169,good
22,female,own,5951,bad
49,male,own,2096,good
45,male,free,7882,good
53,male,free,4870,bad
35,female,rent,9055,bad
`

func testBundle(t *testing.T, version string) *Bundle {
	t.Helper()
	tbl, err := table.ReadCSV(strings.NewReader(trainCSV))
	require.NoError(t, err)

	reg, err := encoder.FitRegistry(tbl, "status")
	require.NoError(t, err)
	reg = reg.WithVersion(version)

	X, y, err := reg.EncodeTraining(tbl)
	require.NoError(t, err)

	models := map[tree.Criterion]*tree.Classifier{}
	for _, c := range []tree.Criterion{tree.Gini, tree.Entropy} {
		clf := tree.NewClassifier(tree.WithCriterion(c))
		require.NoError(t, clf.Fit(X, y))
		models[c] = clf
	}

	return &Bundle{
		Manifest: Manifest{
			Version:   version,
			CreatedAt: time.Unix(1700000000, 0).UTC(),
			Target:    "status",
			Features:  reg.Features,
			Numeric:   reg.NumericFeatures(),
			Criteria:  []tree.Criterion{tree.Gini, tree.Entropy},
			Metrics:   map[tree.Criterion]Metrics{tree.Gini: {Accuracy: 1, TestRows: 2}},
		},
		Registry: reg,
		Models:   models,
	}
}

func newStore(t *testing.T) *DiskStore {
	t.Helper()
	ds, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return ds
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	b := testBundle(t, "v1")
	require.NoError(t, Save(ctx, store, b))

	l, err := Load(ctx, store)
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, l.Manifest.FormatVersion)
	assert.Equal(t, "v1", l.Manifest.Version)
	require.NotNil(t, l.Registry)
	assert.NoError(t, l.RegistryErr)
	assert.Equal(t, b.Registry.Features, l.Registry.Features)
	assert.Equal(t, b.Registry.Encoders["Sex"].Categories(), l.Registry.Encoders["Sex"].Categories())
	assert.Equal(t, b.Registry.Labels.Categories(), l.Registry.Labels.Categories())
	assert.Equal(t, 1.0, l.Manifest.Metrics[tree.Gini].Accuracy)
	assert.Equal(t, b.Registry.NumericFeatures(), l.Schema().Numeric)
	assert.Equal(t, encoder.Schema{Features: b.Registry.Features, Target: "status", Numeric: b.Registry.NumericFeatures()}, l.Schema())

	X, _, err := b.Registry.EncodeTraining(mustTable(t))
	require.NoError(t, err)
	for c, want := range b.Models {
		got, ok := l.Models[c]
		require.True(t, ok)
		wp, err := want.Predict(X)
		require.NoError(t, err)
		gp, err := got.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, wp, gp, "criterion %s", c)
	}
}

func mustTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.ReadCSV(strings.NewReader(trainCSV))
	require.NoError(t, err)
	return tbl
}

func TestLoadMissingRegistryIsNotFatal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)
	require.NoError(t, Save(ctx, store, testBundle(t, "v1")))

	require.NoError(t, os.Remove(filepath.Join(root, RegistryName)))

	l, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Nil(t, l.Registry)
	assert.ErrorIs(t, l.RegistryErr, ErrNotFound)
	assert.Len(t, l.Models, 2)
}

func TestLoadMissingManifest(t *testing.T) {
	_, err := Load(context.Background(), newStore(t))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadVersionMismatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, Save(ctx, store, testBundle(t, "v1")))

	// a registry from a later run lands next to the old models
	other := testBundle(t, "v2")
	rb, err := json.Marshal(other.Registry)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, RegistryName, compress(rb)))

	_, err = Load(ctx, store)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestLoadModelFromOtherRun(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, Save(ctx, store, testBundle(t, "v1")))

	other := testBundle(t, "v2")
	mb, err := encodeModel("v2", tree.Gini, other.Models[tree.Gini])
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, ModelName(tree.Gini), mb))

	_, err = Load(ctx, store)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestLoadIncompatibleFormat(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	b := testBundle(t, "v1")
	b.Manifest.FormatVersion = "2.0.0"
	require.NoError(t, Save(ctx, store, b))

	_, err := Load(ctx, store)
	assert.ErrorIs(t, err, ErrIncompatibleFormat)
}

func TestSaveRejectsMismatchedRegistry(t *testing.T) {
	b := testBundle(t, "v1")
	b.Registry = b.Registry.WithVersion("v2")
	err := Save(context.Background(), newStore(t), b)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestSaveRejectsIncompleteBundle(t *testing.T) {
	b := testBundle(t, "v1")
	delete(b.Models, tree.Entropy)
	err := Save(context.Background(), newStore(t), b)
	assert.ErrorIs(t, err, ErrIncompleteBundle)
}

func TestDiskStoreNotFound(t *testing.T) {
	_, err := newStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompressRoundTrip(t *testing.T) {
	in := []byte(strings.Repeat("credit", 100))
	out, err := decompress(compress(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
