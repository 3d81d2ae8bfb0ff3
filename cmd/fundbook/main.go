package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundbook/internal/advisor"
	"fundbook/internal/amqp"
	"fundbook/internal/config"
	apphttp "fundbook/internal/http"
	applog "fundbook/internal/log"
	"fundbook/internal/services"
	"fundbook/internal/storage"
)

func main() {
	// Load .env for local development; absent in production is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	applog.Setup(cfg.LogLevel)
	logger := applog.For(applog.ComponentApp)

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

	if err := repo.EnsureDefaultCategoryGroups(context.Background()); err != nil {
		logger.Error("Failed to seed category groups", "error", err)
		os.Exit(1)
	}

	// The export queue is optional: without it, writes stay local and
	// the worker's periodic sweep picks them up from the pending table.
	var publisher services.ExportPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Export queue unavailable, continuing without it", "error", err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	adv := advisor.New(advisor.Config{
		BaseURL: cfg.AdvisorBaseURL,
		APIKey:  cfg.AdvisorAPIKey,
		Model:   cfg.AdvisorModel,
		Timeout: cfg.AdvisorTimeout,
	})
	if adv == nil {
		logger.Info("Advisor disabled, advice endpoint serves the fallback")
	}

	txService := services.NewTransactionService(repo, publisher)
	ledgerService := services.NewLedgerService(repo, adv)

	srv := apphttp.NewServer(":"+cfg.Port, repo, repo, txService, ledgerService,
		func(ctx context.Context) error {
			_, err := repo.ListUsers(ctx)
			return err
		})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting fundbook server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
