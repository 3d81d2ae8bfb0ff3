package core

import "testing"

func TestBuildMonthReport(t *testing.T) {
	txs := []Transaction{
		{ID: "1", UserID: "u", Amount: Money{Cents: 500000}, Type: Income, Category: "Sales", Date: NewDate(2024, 3, 2)},
		{ID: "2", UserID: "u", Amount: Money{Cents: 120000}, Type: Expense, Category: "Rent", Date: NewDate(2024, 3, 5)},
		{ID: "3", UserID: "u", Amount: Money{Cents: 30000}, Type: Expense, Category: "Groceries", Date: NewDate(2024, 3, 9)},
		{ID: "4", UserID: "u", Amount: Money{Cents: 20000}, Type: Expense, Category: "Groceries", Date: NewDate(2024, 3, 21)},
		// Different month, must be excluded.
		{ID: "5", UserID: "u", Amount: Money{Cents: 99900}, Type: Expense, Category: "Rent", Date: NewDate(2024, 4, 5)},
	}

	r := BuildMonthReport(txs, 2024, 3)
	if r.Income.Cents != 500000 {
		t.Errorf("income = %d, want 500000", r.Income.Cents)
	}
	if r.Expenses.Cents != 170000 {
		t.Errorf("expenses = %d, want 170000", r.Expenses.Cents)
	}
	if r.Net.Cents != 330000 {
		t.Errorf("net = %d, want 330000", r.Net.Cents)
	}
	if len(r.ByCategory) != 2 {
		t.Fatalf("got %d categories, want 2: %+v", len(r.ByCategory), r.ByCategory)
	}
	// Sorted largest first.
	if r.ByCategory[0].Category != "Rent" || r.ByCategory[0].Amount.Cents != 120000 {
		t.Errorf("top category = %+v, want Rent 120000", r.ByCategory[0])
	}
	if r.ByCategory[1].Category != "Groceries" || r.ByCategory[1].Amount.Cents != 50000 {
		t.Errorf("second category = %+v, want Groceries 50000", r.ByCategory[1])
	}
}

func TestBuildMonthReportEmptyMonth(t *testing.T) {
	r := BuildMonthReport(nil, 2024, 1)
	if r.Income.Cents != 0 || r.Expenses.Cents != 0 || len(r.ByCategory) != 0 {
		t.Fatalf("empty month should report zeros, got %+v", r)
	}
}
