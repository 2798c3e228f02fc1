package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"spesewa/internal/amqp"
	"spesewa/internal/backend"
	"spesewa/internal/cli"
	"spesewa/internal/ledger"
	"spesewa/internal/log"
	"spesewa/internal/storage"
	"spesewa/internal/worker"
)

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentWorker)
	if err != nil {
		cli.Exit(logger, "Failed to load configuration", err)
	}
	logger.Info("Starting spesewa-worker", "sqlite_db", cfg.SQLiteDBPath, "interval", cfg.SyncInterval)

	ctx, stop := cli.SignalContext()
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		cli.Exit(logger, "Failed to initialize SQLite repository", err)
	}
	defer repo.Close()

	sheets, mgr, err := backend.OpenGoogleLedger(cfg, logger)
	if err != nil {
		cli.Exit(logger, "Failed to initialize Google Sheets ledger", err)
	}
	if !mgr.Authenticated() {
		logger.Warn("Google account not authorized yet, rows stay pending until cmd/oauth-init or /auth/google completes")
	}

	syncWorker := worker.NewSyncWorker(repo, ledger.Serialized(sheets), cfg.SyncBatchSize, logger)

	logger.Info("Performing startup sync check")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return syncWorker.Run(gctx, cfg.SyncInterval) })

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			cli.Exit(logger, "Failed to initialize AMQP client", err)
		}
		defer client.Close()
		g.Go(func() error { return client.ConsumeExpenseSync(gctx, syncWorker.HandleSyncMessage) })
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		return
	}
	logger.Info("Worker shutdown complete")
}
