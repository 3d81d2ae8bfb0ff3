package core

import "testing"

func TestBuildInvestorLedgers(t *testing.T) {
	today := NewDate(2024, 7, 1)
	txs := []Transaction{
		// 100k from Asha on Jan 15 at 12% monthly for 12 months.
		investorTx(NewDate(2024, 1, 15), 10000000, 12, Monthly, 12),
		// Two interest payments back to her, categorized by name.
		{ID: "p1", UserID: "u-1", Amount: Money{Cents: 100000}, Type: Expense,
			Category: "asha", Date: NewDate(2024, 2, 16)},
		{ID: "p2", UserID: "u-1", Amount: Money{Cents: 100000}, Type: Expense,
			Category: "Asha", Date: NewDate(2024, 3, 16)},
		// Unrelated spending must not open a ledger.
		{ID: "p3", UserID: "u-1", Amount: Money{Cents: 4200}, Type: Expense,
			Category: "Groceries", Date: NewDate(2024, 3, 20)},
	}

	ledgers := BuildInvestorLedgers(txs, today)
	if len(ledgers) != 1 {
		t.Fatalf("got %d ledgers, want 1: %+v", len(ledgers), ledgers)
	}
	l := ledgers[0]
	if l.Name != "Asha" {
		t.Errorf("name = %q, want Asha", l.Name)
	}
	if l.Principal.Cents != 10000000 {
		t.Errorf("principal = %d, want 10000000", l.Principal.Cents)
	}
	// Feb 15 through Jul 15... as of Jul 1: Feb, Mar, Apr, May, Jun = 5 dues of 1k.
	if l.AccruedInterest.Cents != 500000 {
		t.Errorf("accrued interest = %d, want 500000", l.AccruedInterest.Cents)
	}
	if l.Payments.Cents != 200000 {
		t.Errorf("payments = %d, want 200000", l.Payments.Cents)
	}
	want := int64(10000000 + 500000 - 200000)
	if l.Outstanding.Cents != want {
		t.Errorf("outstanding = %d, want %d", l.Outstanding.Cents, want)
	}
	if l.Funds != 1 {
		t.Errorf("funds = %d, want 1", l.Funds)
	}
}

func TestBuildInvestorLedgersCaseInsensitiveGrouping(t *testing.T) {
	first := investorTx(NewDate(2024, 1, 1), 5000000, 10, Yearly, 24)
	first.ID = "f1"
	first.Investor.Name = "RAVI KUMAR"
	second := investorTx(NewDate(2024, 3, 1), 3000000, 10, Yearly, 24)
	second.ID = "f2"
	second.Investor.Name = "Ravi Kumar"

	ledgers := BuildInvestorLedgers([]Transaction{first, second}, NewDate(2024, 6, 1))
	if len(ledgers) != 1 {
		t.Fatalf("got %d ledgers, want 1 (case-insensitive key)", len(ledgers))
	}
	if ledgers[0].Name != "Ravi Kumar" {
		t.Errorf("display name = %q, want most recent casing %q", ledgers[0].Name, "Ravi Kumar")
	}
	if ledgers[0].Principal.Cents != 8000000 {
		t.Errorf("principal = %d, want 8000000", ledgers[0].Principal.Cents)
	}
	if ledgers[0].Funds != 2 {
		t.Errorf("funds = %d, want 2", ledgers[0].Funds)
	}
}

func TestBuildInvestorLedgersSortedByName(t *testing.T) {
	a := investorTx(NewDate(2024, 1, 1), 100000, 10, Monthly, 6)
	a.ID = "a"
	a.Investor.Name = "zoe"
	b := investorTx(NewDate(2024, 1, 1), 100000, 10, Monthly, 6)
	b.ID = "b"
	b.Investor.Name = "Amir"

	ledgers := BuildInvestorLedgers([]Transaction{a, b}, NewDate(2024, 2, 15))
	if len(ledgers) != 2 || ledgers[0].Name != "Amir" || ledgers[1].Name != "zoe" {
		t.Fatalf("ledgers not sorted by name: %+v", ledgers)
	}
}

func TestUpcomingEvents(t *testing.T) {
	tx := investorTx(NewDate(2024, 1, 31), 10000000, 12, Monthly, 3)
	events := UpcomingEvents([]Transaction{tx}, NewDate(2024, 4, 1), 30)

	// Apr 30 carries the final interest due and the principal.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Kind != EventInterest || events[1].Kind != EventMaturity {
		t.Errorf("interest should sort before principal on the same date: %+v", events)
	}
}
