package trainer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/danthegoodman1/credittree/artifact"
	"github.com/danthegoodman1/credittree/table"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// creditTable builds a table where status is fully determined by Housing.
func creditTable(t *testing.T, n int) *table.Table {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("Age,Sex,Housing,Credit amount,status\n")
	housing := []string{"own", "rent", "free"}
	for i := 0; i < n; i++ {
		h := housing[i%3]
		status := "good"
		if h == "rent" {
			status = "bad"
		}
		sex := "male"
		if i%2 == 0 {
			sex = "female"
		}
		fmt.Fprintf(&sb, "%d,%s,%s,%d,%s\n", 20+i%40, sex, h, 1000+i*37, status)
	}
	tbl, err := table.ReadCSV(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return tbl
}

func TestTrain(t *testing.T) {
	tbl := creditTable(t, 60)
	b, err := Train(context.Background(), tbl, DefaultConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, b.Manifest.Version)
	assert.Equal(t, b.Manifest.Version, b.Registry.Version)
	assert.Equal(t, artifact.FormatVersion, b.Manifest.FormatVersion)
	assert.Equal(t, []string{"Age", "Sex", "Housing", "Credit amount"}, b.Manifest.Features)
	assert.Equal(t, Criteria, b.Manifest.Criteria)
	require.NotNil(t, b.Registry.Labels)
	assert.Equal(t, []string{"good", "bad"}, b.Registry.Labels.Categories())

	for _, c := range Criteria {
		require.Contains(t, b.Models, c)
		m := b.Manifest.Metrics[c]
		assert.Equal(t, 12, m.TestRows)
		assert.Equal(t, 1.0, m.Accuracy, "criterion %s", c)
	}
}

func TestTrainSavesAndLoads(t *testing.T) {
	ctx := context.Background()
	b, err := Train(ctx, creditTable(t, 30), DefaultConfig())
	require.NoError(t, err)

	store, err := artifact.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, artifact.Save(ctx, store, b))

	l, err := artifact.Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, b.Manifest.Version, l.Manifest.Version)
	assert.NotNil(t, l.Registry)
}

func TestTrainDeterministicSplit(t *testing.T) {
	a, b := []int{}, []int{}
	tr1, te1 := trainTestSplit(50, 0.2, 42)
	tr2, te2 := trainTestSplit(50, 0.2, 42)
	a = append(append(a, tr1...), te1...)
	b = append(append(b, tr2...), te2...)
	assert.Equal(t, a, b)
	assert.Len(t, te1, 10)
	assert.Len(t, tr1, 40)
}

func TestTrainMaxDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 1
	b, err := Train(context.Background(), creditTable(t, 30), cfg)
	require.NoError(t, err)
	for _, c := range Criteria {
		assert.LessOrEqual(t, b.Models[c].Depth(), 1)
	}
}

func TestTrainErrors(t *testing.T) {
	tbl := creditTable(t, 10)

	cfg := DefaultConfig()
	cfg.TestRatio = 1
	_, err := Train(context.Background(), tbl, cfg)
	assert.ErrorIs(t, err, ErrBadTestRatio)

	cfg = DefaultConfig()
	cfg.Target = "missing"
	_, err = Train(context.Background(), tbl, cfg)
	assert.Error(t, err)
}

func TestTrainWithoutTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = ""
	b, err := Train(context.Background(), creditTable(t, 10), cfg)
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Nil(t, b)
}

func TestTrainLogsFullTreeAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	cfg := DefaultConfig()
	cfg.TestRatio = 0
	_, err := Train(ctx, creditTable(t, 30), cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "full tree")
	assert.Contains(t, buf.String(), "Housing")

	buf.Reset()
	ctx = logger.Level(zerolog.InfoLevel).WithContext(context.Background())
	_, err = Train(ctx, creditTable(t, 30), cfg)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "full tree")
	assert.Contains(t, buf.String(), "fitted tree")
}

func TestEvaluate(t *testing.T) {
	m := evaluate([]int{1, 1, 0, 0}, []int{1, 0, 1, 0})
	assert.Equal(t, 4, m.TestRows)
	assert.InDelta(t, 0.5, m.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, m.Precision, 1e-9)
	assert.InDelta(t, 0.5, m.Recall, 1e-9)
	assert.InDelta(t, 0.5, m.F1, 1e-9)

	assert.Equal(t, artifact.Metrics{}, evaluate(nil, nil))
}
