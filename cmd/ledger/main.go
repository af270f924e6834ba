package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)

	// A nil *amqp.Client must not reach the services as a non-nil interface.
	var events services.EventPublisher
	eventClient := cli.InitEvents(context.Background(), logger.Logger, cfg)
	if eventClient != nil {
		events = eventClient
	}

	transactions := services.NewTransactionService(repo, events, cfg.MaxPageSize)
	deps := apphttp.Deps{
		Transactions: transactions,
		Registry:     services.NewRegistryService(repo, events),
		Stats:        services.NewStatsService(transactions),
		Users:        services.NewUserService(repo),
		DB:           repo,
	}

	srv := apphttp.NewServer(deps, apphttp.Options{
		Addr:               ":" + cfg.Port,
		IdentityHeader:     cfg.IdentityHeader,
		IdentityTTL:        cfg.IdentityTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if eventClient != nil {
			if err := eventClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	})

	logger.Info("Starting ledger server",
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"events", eventClient != nil,
		"identity_header", cfg.IdentityHeader)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
