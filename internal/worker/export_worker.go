// Package worker exports transactions from SQLite to the spreadsheet.
// It consumes queue messages for low latency and periodically sweeps
// the pending table as a backup in case messages are lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fundbook/internal/amqp"
	"fundbook/internal/core"
	"fundbook/internal/sheets"
	"fundbook/internal/storage"
)

// ExportStore is the storage surface the worker needs.
type ExportStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	GetPendingExports(ctx context.Context, limit int) ([]storage.PendingExport, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

type ExportWorker struct {
	store     ExportStore
	appender  sheets.TransactionAppender
	remover   sheets.TransactionRemover
	batchSize int
}

func NewExportWorker(store ExportStore, appender sheets.TransactionAppender, remover sheets.TransactionRemover, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		store:     store,
		appender:  appender,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleSync exports one transaction to the spreadsheet. A transaction
// that was deleted between publish and consume is not an error.
func (w *ExportWorker) HandleSync(ctx context.Context, msg amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "version", msg.Version)

	t, err := w.store.GetTransaction(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Transaction gone before export, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	return w.export(ctx, t)
}

// HandleDelete removes one transaction's row from the spreadsheet.
func (w *ExportWorker) HandleDelete(ctx context.Context, msg amqp.DeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.remover == nil {
		slog.WarnContext(ctx, "No spreadsheet remover configured, skipping", "id", msg.ID)
		return nil
	}
	if err := w.remover.Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove from spreadsheet: %w", err)
	}
	return nil
}

// ProcessPendingExports sweeps transactions still marked pending. It is
// the backup path for lost queue messages; per-row failures are marked
// and skipped so one bad row does not stall the batch.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.store.GetPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))
	for _, p := range pending {
		t, err := w.store.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending transaction", "id", p.ID, "error", err)
			w.markError(ctx, p.ID)
			continue
		}
		if err := w.export(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction", "id", p.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupCheck drains a larger pending batch once at worker start, to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending exports for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup", "count", len(pending))
	synced, failed := 0, 0
	for _, p := range pending {
		t, err := w.store.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load transaction for startup export", "id", p.ID, "error", err)
			w.markError(ctx, p.ID)
			failed++
			continue
		}
		if err := w.export(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export during startup", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}

// RunSweep blocks, running ProcessPendingExports every interval until
// the context is cancelled.
func (w *ExportWorker) RunSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPendingExports(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending export sweep failed", "error", err)
			}
		}
	}
}

func (w *ExportWorker) export(ctx context.Context, t core.Transaction) error {
	ref, err := w.appender.Append(ctx, t)
	if err != nil {
		w.markError(ctx, t.ID)
		return fmt.Errorf("append to spreadsheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, t.ID); err != nil {
		// The row is on the sheet; the sweep will retry the marking.
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", t.ID, "ref", ref, "category", t.Category, "amount_cents", t.Amount.Cents)
	return nil
}

func (w *ExportWorker) markError(ctx context.Context, id string) {
	if err := w.store.MarkExportError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", err)
	}
}
