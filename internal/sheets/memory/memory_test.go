package memory

import (
	"context"
	"testing"

	"fundbook/internal/core"
)

func sample(id string) core.Transaction {
	return core.Transaction{
		ID:       id,
		UserID:   "u-1",
		Amount:   core.Money{Cents: 1500},
		Type:     core.Expense,
		Category: "Groceries",
		Date:     core.NewDate(2024, 5, 10),
	}
}

func TestAppendAndRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, sample("a"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}
	if _, err := s.Append(ctx, sample("b")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	rows := s.Rows()
	if len(rows) != 1 || rows[0].ID != "b" {
		t.Errorf("rows = %+v, want only b", rows)
	}

	// Removing a row that was never exported is fine.
	if err := s.Remove(ctx, "ghost"); err != nil {
		t.Errorf("Remove(ghost) = %v, want nil", err)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	bad := sample("x")
	bad.Amount = core.Money{}
	if _, err := s.Append(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}
