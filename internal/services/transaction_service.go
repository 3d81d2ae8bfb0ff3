// Package services orchestrates domain operations across storage, the
// export queue and the projection math.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fundbook/internal/core"
)

// TransactionStore is the persistence surface the services need.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
	UpdateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	SoftDeleteTransaction(ctx context.Context, id string) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	ListMonthTransactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error)
}

// ExportPublisher queues transactions for spreadsheet export.
type ExportPublisher interface {
	PublishSync(ctx context.Context, id string, version int64) error
	PublishDelete(ctx context.Context, id string) error
}

// TransactionService writes transactions locally and queues them for
// export. The local write is authoritative; a failed publish is logged
// and never fails the request.
type TransactionService struct {
	store     TransactionStore
	publisher ExportPublisher
}

func NewTransactionService(store TransactionStore, publisher ExportPublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

// Create validates, assigns identity and persists a new transaction.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishSync(ctx, t.ID, 1)
	return t, nil
}

// Update replaces an existing transaction's mutable fields.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	version, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.publishSync(ctx, t.ID, version)
	return nil
}

// Delete soft deletes a transaction and queues the spreadsheet removal.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.SoftDeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "Export queue not available, skipping delete message", "id", id)
		return nil
	}
	if err := s.publisher.PublishDelete(ctx, id); err != nil {
		// The local delete already succeeded; the periodic sweep will
		// not resurrect the row, so just log.
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// List returns a user's live transactions in creation order.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

// ListMonth returns a user's transactions dated inside one calendar month.
func (s *TransactionService) ListMonth(ctx context.Context, userID string, year, month int) ([]core.Transaction, error) {
	return s.store.ListMonthTransactions(ctx, userID, year, month)
}

func (s *TransactionService) publishSync(ctx context.Context, id string, version int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Export queue not available, skipping sync message", "id", id)
		return
	}
	if err := s.publisher.PublishSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}
