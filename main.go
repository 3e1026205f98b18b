package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danthegoodman1/credittree/artifact"
	"github.com/danthegoodman1/credittree/crdb"
	"github.com/danthegoodman1/credittree/gologger"
	"github.com/danthegoodman1/credittree/http_server"
	"github.com/danthegoodman1/credittree/migrations"
	"github.com/danthegoodman1/credittree/predictor"
	"github.com/danthegoodman1/credittree/utils"
)

var logger = gologger.NewLogger()

func main() {
	logger.Debug().Msg("starting credit risk prediction server")
	ctx := logger.WithContext(context.Background())

	store, err := artifact.NewStoreFromEnv(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("error creating artifact store")
		os.Exit(1)
	}

	loaded, err := artifact.Load(ctx, store)
	if err != nil {
		logger.Error().Err(err).Msg("error loading model artifacts")
		os.Exit(1)
	}
	pred := predictor.New(loaded, predictor.WithClassLabels(predictor.ParseClassLabels(utils.TARGET_LABELS)))

	var runs http_server.RunLister
	if utils.CRDB_DSN != "" {
		if err := crdb.ConnectToDB(); err != nil {
			logger.Error().Err(err).Msg("error connecting to CRDB")
			os.Exit(1)
		}

		err = migrations.CheckMigrations(utils.CRDB_DSN)
		if err != nil {
			logger.Error().Err(err).Msg("Error checking migrations")
			os.Exit(1)
		}
		runs = crdb.NewHistory(crdb.PGPool)
	}

	httpServer := http_server.StartHTTPServer(pred, runs)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn().Msg("received shutdown signal!")

	// For AWS ALB needing some time to de-register pod
	sleepTime := utils.SHUTDOWN_SLEEP_SEC
	logger.Info().Msg(fmt.Sprintf("sleeping for %ds before exiting", sleepTime))

	time.Sleep(time.Second * time.Duration(sleepTime))
	logger.Info().Msg(fmt.Sprintf("slept for %ds, exiting", sleepTime))

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}
	if err := store.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown artifact store")
	}
	if crdb.PGPool != nil {
		crdb.PGPool.Close()
	}
}
