package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundbook/internal/amqp"
	"fundbook/internal/config"
	applog "fundbook/internal/log"
	"fundbook/internal/sheets"
	gsheet "fundbook/internal/sheets/google"
	"fundbook/internal/storage"
	"fundbook/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	applog.Setup(cfg.LogLevel)
	logger := applog.For(applog.ComponentWorker)

	logger.Info("Starting fundbook-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Without a spreadsheet the worker has nothing to export to.
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the export worker")
		os.Exit(1)
	}
	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	var appender sheets.TransactionAppender = sheetsClient
	var remover sheets.TransactionRemover = sheetsClient
	exportWorker := worker.NewExportWorker(repo, appender, remover, cfg.ExportBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Performing startup export check")
	if err := exportWorker.StartupCheck(ctx); err != nil {
		// Keep running; the periodic sweep retries.
		logger.Error("Startup export check failed", "error", err)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	go func() {
		err := amqpClient.Consume(ctx,
			func(ctx context.Context, m *amqp.SyncMessage) error {
				return exportWorker.HandleSync(ctx, *m)
			},
			func(ctx context.Context, m *amqp.DeleteMessage) error {
				return exportWorker.HandleDelete(ctx, *m)
			})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	go exportWorker.RunSweep(ctx, cfg.ExportInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Shutting down worker")
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
