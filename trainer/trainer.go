package trainer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danthegoodman1/credittree/artifact"
	"github.com/danthegoodman1/credittree/encoder"
	"github.com/danthegoodman1/credittree/table"
	"github.com/danthegoodman1/credittree/tree"
	"github.com/danthegoodman1/credittree/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const exportDepth = 3

var (
	ErrBadTestRatio = errors.New("test ratio must be in [0, 1)")
	ErrNoTarget     = errors.New("no target column configured")
	ErrTooFewRows   = errors.New("not enough rows left to train on")

	// Criteria are trained on every run, in this order.
	Criteria = []tree.Criterion{tree.Gini, tree.Entropy}
)

type Config struct {
	Target    string
	TestRatio float64
	Seed      int64
	MaxDepth  int
}

func DefaultConfig() Config {
	return Config{
		Target:    "status",
		TestRatio: 0.2,
		Seed:      42,
	}
}

// ConfigFromEnv reads the training settings from utils/env.go.
func ConfigFromEnv() (Config, error) {
	ratio, err := utils.ParseFloatOrDefault(utils.TEST_RATIO, 0.2)
	if err != nil {
		return Config{}, fmt.Errorf("error parsing TEST_RATIO: %w", err)
	}
	return Config{
		Target:    utils.TARGET_COLUMN,
		TestRatio: ratio,
		Seed:      utils.SEED,
		MaxDepth:  int(utils.MAX_DEPTH),
	}, nil
}

// Train fits the encoder registry and one tree per criterion on t, and
// returns them as a bundle stamped with a single fresh version.
func Train(ctx context.Context, t *table.Table, cfg Config) (*artifact.Bundle, error) {
	logger := zerolog.Ctx(ctx)
	if cfg.Target == "" {
		return nil, ErrNoTarget
	}
	if cfg.TestRatio < 0 || cfg.TestRatio >= 1 {
		return nil, fmt.Errorf("%w: %v", ErrBadTestRatio, cfg.TestRatio)
	}

	reg, err := encoder.FitRegistry(t, cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("error in FitRegistry: %w", err)
	}
	X, y, err := reg.EncodeTraining(t)
	if err != nil {
		return nil, fmt.Errorf("error in EncodeTraining: %w", err)
	}

	trainIdx, testIdx := trainTestSplit(len(X), cfg.TestRatio, cfg.Seed)
	if len(trainIdx) == 0 {
		return nil, ErrTooFewRows
	}
	XTrain, yTrain := subset(X, y, trainIdx)
	XTest, yTest := subset(X, y, testIdx)
	logger.Debug().Int("train", len(trainIdx)).Int("test", len(testIdx)).Msg("split rows")

	var (
		mu      sync.Mutex
		models  = map[tree.Criterion]*tree.Classifier{}
		metrics = map[tree.Criterion]artifact.Metrics{}
	)
	g, gCtx := errgroup.WithContext(ctx)
	for _, c := range Criteria {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			s := time.Now()
			clf := newClassifier(c, cfg)
			if err := clf.Fit(XTrain, yTrain); err != nil {
				return fmt.Errorf("error fitting %s tree: %w", c, err)
			}
			m := artifact.Metrics{}
			if len(XTest) > 0 {
				pred, err := clf.Predict(XTest)
				if err != nil {
					return fmt.Errorf("error predicting with %s tree: %w", c, err)
				}
				m = evaluate(yTest, pred)
			}
			logger.Info().
				Str("criterion", string(c)).
				Int("depth", clf.Depth()).
				Int("leaves", clf.Leaves()).
				Float64("accuracy", m.Accuracy).
				Dur("took", time.Since(s)).
				Msg("fitted tree")

			mu.Lock()
			defer mu.Unlock()
			models[c] = clf
			metrics[c] = m
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range Criteria {
		logger.Info().Str("criterion", string(c)).Msg("\n" + models[c].ExportText(reg.Features, exportDepth))
		if e := logger.Debug(); e.Enabled() {
			e.Str("criterion", string(c)).Msg("full tree\n" + models[c].ExportText(reg.Features, 0))
		}
	}

	version := utils.GenKSortedID("run_")
	return &artifact.Bundle{
		Manifest: artifact.Manifest{
			FormatVersion: artifact.FormatVersion,
			Version:       version,
			CreatedAt:     time.Now().UTC(),
			Target:        cfg.Target,
			Features:      append([]string(nil), reg.Features...),
			Numeric:       reg.NumericFeatures(),
			Criteria:      append([]tree.Criterion(nil), Criteria...),
			Metrics:       metrics,
		},
		Registry: reg.WithVersion(version),
		Models:   models,
	}, nil
}

func newClassifier(c tree.Criterion, cfg Config) *tree.Classifier {
	opts := []tree.Option{tree.WithCriterion(c)}
	if cfg.MaxDepth > 0 {
		opts = append(opts, tree.WithMaxDepth(cfg.MaxDepth))
	}
	return tree.NewClassifier(opts...)
}
