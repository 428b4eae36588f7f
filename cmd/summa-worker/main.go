package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"summa/internal/amqp"
	"summa/internal/config"
	"summa/internal/forecast"
	"summa/internal/sheets"
	"summa/internal/sheets/google"
	"summa/internal/sheets/memory"
	"summa/internal/storage"
	"summa/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.SQLiteDBPath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	var (
		writer  sheets.ExpenseWriter
		deleter sheets.ExpenseDeleter
	)
	if cfg.SheetsEnabled() {
		client, err := google.NewFromEnv(ctx)
		if err != nil {
			slog.Error("Failed to build sheets client", "error", err)
			os.Exit(1)
		}
		writer, deleter = client, client
	} else {
		slog.Warn("GOOGLE_SPREADSHEET_ID not set, backing up to in-memory store only")
		store := memory.New()
		writer, deleter = store, store
	}

	runner := &forecast.ScriptRunner{
		Interpreter: cfg.ForecastInterpreter,
		ScriptPath:  cfg.ForecastScript,
		ScratchDir:  cfg.ForecastScratchDir,
		Timeout:     cfg.ForecastTimeout,
	}
	forecaster := forecast.NewService(repo, runner, cfg.ForecastScratchDir)

	w := worker.NewSyncWorker(repo, writer, deleter, forecaster, cfg.SyncBatchSize)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	if err := w.StartupSyncCheck(ctx); err != nil {
		slog.Error("Startup sync check failed", "error", err)
	}

	go func() {
		if err := amqpClient.Consume(ctx, w.HandleMessage); err != nil {
			slog.Error("Consumer stopped", "error", err)
			cancel()
		}
	}()

	go w.RunPendingSyncLoop(ctx, cfg.SyncInterval)

	slog.Info("Worker started",
		"queue", cfg.AMQPQueue,
		"sync_interval", cfg.SyncInterval,
		"batch_size", cfg.SyncBatchSize)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	slog.Info("Worker shutting down")
}
