package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/export"
	"ledger/internal/services"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("ledger-worker", os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger.Logger)
	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required by the sheet sync worker")
		os.Exit(1)
	}
	targets, _ := cfg.SheetTargets()
	if len(targets) == 0 {
		logger.Error("SHEET_SYNC_TARGETS is empty, nothing to sync")
		os.Exit(1)
	}

	creds, err := export.Credentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		logger.Error("Failed to load Google credentials", "error", err)
		os.Exit(1)
	}
	sheetsClient, err := export.NewSheetsClient(context.Background(), creds)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(
		services.NewTransactionService(repo, nil, cfg.MaxPageSize),
		sheetsClient,
		worker.Config{
			Targets:   targets,
			SheetName: cfg.SheetSyncSheet,
			Interval:  cfg.SheetSyncInterval,
		},
	)

	ctx, done := cli.GracefulShutdown(logger.Logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := syncWorker.Stop(ctx); err != nil {
			logger.Error("Failed to stop sheet sync worker", "error", err)
		}
	})

	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to start sheet sync worker", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.Consume(gctx, func(ev *amqp.LedgerEvent) error {
			return syncWorker.HandleEvent(gctx, ev)
		})
	})

	logger.Info("Sheet sync worker ready",
		"targets", len(targets),
		"sheet", cfg.SheetSyncSheet)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumer stopped", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger worker stopped gracefully")
}
