package worker

import (
	"context"
	"errors"
	"testing"

	"fundbook/internal/amqp"
	"fundbook/internal/core"
	"fundbook/internal/sheets/memory"
	"fundbook/internal/storage"
)

type fakeExportStore struct {
	txs      map[string]core.Transaction
	pending  []storage.PendingExport
	exported []string
	errored  []string
}

func newFakeExportStore(txs ...core.Transaction) *fakeExportStore {
	s := &fakeExportStore{txs: map[string]core.Transaction{}}
	for _, t := range txs {
		s.txs[t.ID] = t
	}
	return s
}

func (s *fakeExportStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *fakeExportStore) GetPendingExports(_ context.Context, _ int) ([]storage.PendingExport, error) {
	return s.pending, nil
}

func (s *fakeExportStore) MarkExported(_ context.Context, id string) error {
	s.exported = append(s.exported, id)
	return nil
}

func (s *fakeExportStore) MarkExportError(_ context.Context, id string) error {
	s.errored = append(s.errored, id)
	return nil
}

type failingAppender struct{}

func (failingAppender) Append(context.Context, core.Transaction) (string, error) {
	return "", errors.New("sheet unavailable")
}

func exportTx(id string) core.Transaction {
	return core.Transaction{
		ID:       id,
		UserID:   "u1",
		Amount:   core.Money{Cents: 75000},
		Type:     core.Expense,
		Category: "Groceries",
		Date:     core.NewDate(2024, 5, 2),
	}
}

func TestHandleSyncExportsAndMarks(t *testing.T) {
	store := newFakeExportStore(exportTx("t1"))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, sheet, 10)

	if err := w.HandleSync(context.Background(), amqp.SyncMessage{ID: "t1", Version: 1}); err != nil {
		t.Fatalf("HandleSync() error = %v", err)
	}
	if rows := sheet.Rows(); len(rows) != 1 || rows[0].ID != "t1" {
		t.Errorf("sheet rows = %+v, want one row for t1", rows)
	}
	if len(store.exported) != 1 || store.exported[0] != "t1" {
		t.Errorf("exported = %v, want [t1]", store.exported)
	}
}

func TestHandleSyncSkipsMissingTransaction(t *testing.T) {
	store := newFakeExportStore()
	sheet := memory.New()
	w := NewExportWorker(store, sheet, sheet, 10)

	if err := w.HandleSync(context.Background(), amqp.SyncMessage{ID: "gone", Version: 2}); err != nil {
		t.Fatalf("missing transaction should be skipped, got %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Error("nothing should have been appended")
	}
}

func TestHandleSyncMarksErrorOnAppendFailure(t *testing.T) {
	store := newFakeExportStore(exportTx("t1"))
	w := NewExportWorker(store, failingAppender{}, nil, 10)

	if err := w.HandleSync(context.Background(), amqp.SyncMessage{ID: "t1", Version: 1}); err == nil {
		t.Fatal("HandleSync() should surface the append failure")
	}
	if len(store.errored) != 1 || store.errored[0] != "t1" {
		t.Errorf("errored = %v, want [t1]", store.errored)
	}
	if len(store.exported) != 0 {
		t.Error("failed export must not be marked exported")
	}
}

func TestHandleDeleteRemovesRow(t *testing.T) {
	store := newFakeExportStore(exportTx("t1"))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, sheet, 10)

	if err := w.HandleSync(context.Background(), amqp.SyncMessage{ID: "t1", Version: 1}); err != nil {
		t.Fatalf("HandleSync() error = %v", err)
	}
	if err := w.HandleDelete(context.Background(), amqp.DeleteMessage{ID: "t1"}); err != nil {
		t.Fatalf("HandleDelete() error = %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Error("row should have been removed from the sheet")
	}
}

func TestHandleDeleteWithoutRemover(t *testing.T) {
	w := NewExportWorker(newFakeExportStore(), memory.New(), nil, 10)
	if err := w.HandleDelete(context.Background(), amqp.DeleteMessage{ID: "t1"}); err != nil {
		t.Fatalf("HandleDelete() without remover error = %v", err)
	}
}

func TestProcessPendingExportsSkipsBadRows(t *testing.T) {
	store := newFakeExportStore(exportTx("good"))
	store.pending = []storage.PendingExport{{ID: "missing", Version: 1}, {ID: "good", Version: 1}}
	sheet := memory.New()
	w := NewExportWorker(store, sheet, sheet, 10)

	if err := w.ProcessPendingExports(context.Background()); err != nil {
		t.Fatalf("ProcessPendingExports() error = %v", err)
	}
	if len(store.errored) != 1 || store.errored[0] != "missing" {
		t.Errorf("errored = %v, want [missing]", store.errored)
	}
	if len(store.exported) != 1 || store.exported[0] != "good" {
		t.Errorf("exported = %v, want [good]", store.exported)
	}
}

func TestStartupCheckDrainsPending(t *testing.T) {
	store := newFakeExportStore(exportTx("a"), exportTx("b"))
	store.pending = []storage.PendingExport{{ID: "a", Version: 1}, {ID: "b", Version: 2}}
	sheet := memory.New()
	w := NewExportWorker(store, sheet, sheet, 10)

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("StartupCheck() error = %v", err)
	}
	if len(sheet.Rows()) != 2 {
		t.Errorf("sheet has %d rows, want 2", len(sheet.Rows()))
	}
}
