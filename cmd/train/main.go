package main

import (
	"context"
	"os"
	"time"

	"github.com/danthegoodman1/credittree/artifact"
	"github.com/danthegoodman1/credittree/crdb"
	"github.com/danthegoodman1/credittree/gologger"
	"github.com/danthegoodman1/credittree/migrations"
	"github.com/danthegoodman1/credittree/table"
	"github.com/danthegoodman1/credittree/trainer"
	"github.com/danthegoodman1/credittree/utils"
)

var logger = gologger.NewComponentLogger("train")

func main() {
	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), 30*time.Minute)
	defer cancel()

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("training failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := trainer.ConfigFromEnv()
	if err != nil {
		return err
	}

	f, err := os.Open(utils.TRAIN_CSV)
	if err != nil {
		return err
	}
	defer f.Close()
	t, err := table.ReadCSV(f)
	if err != nil {
		return err
	}
	logger.Info().Str("path", utils.TRAIN_CSV).Int("rows", t.Len()).Int("columns", len(t.Columns)).Msg("read training data")

	bundle, err := trainer.Train(ctx, t, cfg)
	if err != nil {
		return err
	}

	store, err := artifact.NewStoreFromEnv(ctx)
	if err != nil {
		return err
	}
	defer store.Shutdown(ctx)
	if err = artifact.Save(ctx, store, bundle); err != nil {
		return err
	}

	if utils.CRDB_DSN == "" {
		return nil
	}
	if _, err = migrations.RunMigrations(utils.CRDB_DSN); err != nil {
		return err
	}
	if err = crdb.ConnectToDB(); err != nil {
		return err
	}
	defer crdb.PGPool.Close()
	runs := crdb.RunsFromBundle(bundle)
	if err = crdb.NewHistory(crdb.PGPool).InsertTrainingRuns(ctx, runs); err != nil {
		return err
	}
	logger.Info().Str("version", bundle.Manifest.Version).Int("runs", len(runs)).Msg("recorded training runs")
	return nil
}
