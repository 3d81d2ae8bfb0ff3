package core

import (
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		UserID:   "u-1",
		Amount:   Money{Cents: 1500},
		Type:     Expense,
		Category: "Groceries",
		Date:     NewDate(2024, 5, 10),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name string
		mut  func(*Transaction)
		want error
	}{
		{"missing user", func(tx *Transaction) { tx.UserID = " " }, ErrEmptyUser},
		{"bad type", func(tx *Transaction) { tx.Type = "TRANSFER" }, ErrInvalidType},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"empty category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
		{"zero date", func(tx *Transaction) { tx.Date = Date{Time: time.Time{}} }, ErrInvalidDate},
		{"investor on expense", func(tx *Transaction) {
			tx.Investor = &InvestorDetails{Name: "A", AnnualRatePct: 10, Period: Monthly, DurationMonths: 12}
		}, ErrInvestorType},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mut(&tx)
			if err := tx.Validate(); err != tc.want {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestInvestorDetailsValidate(t *testing.T) {
	good := InvestorDetails{Name: "Asha", AnnualRatePct: 12, Period: Quarterly, DurationMonths: 24}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name string
		mut  func(*InvestorDetails)
		want error
	}{
		{"empty name", func(d *InvestorDetails) { d.Name = "" }, ErrEmptyInvestor},
		{"zero rate", func(d *InvestorDetails) { d.AnnualRatePct = 0 }, ErrInvalidRate},
		{"absurd rate", func(d *InvestorDetails) { d.AnnualRatePct = 250 }, ErrInvalidRate},
		{"bad period", func(d *InvestorDetails) { d.Period = "fortnightly" }, ErrInvalidPeriod},
		{"zero duration", func(d *InvestorDetails) { d.DurationMonths = 0 }, ErrInvalidDuration},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			d := good
			tc.mut(&d)
			if err := d.Validate(); err != tc.want {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMaturityDate(t *testing.T) {
	tx := investorTx(NewDate(2024, 8, 31), 100000, 10, Monthly, 6)
	m, ok := tx.MaturityDate()
	if !ok {
		t.Fatal("expected maturity date")
	}
	if !m.Equal(NewDate(2025, 2, 28).Time) {
		t.Errorf("maturity = %v, want 2025-02-28", m)
	}

	plain := Transaction{UserID: "u", Amount: Money{Cents: 1}, Type: Expense, Category: "x", Date: NewDate(2024, 1, 1)}
	if _, ok := plain.MaturityDate(); ok {
		t.Error("plain transaction should have no maturity date")
	}
}

func TestReturnPeriodTables(t *testing.T) {
	cases := []struct {
		p      ReturnPeriod
		ppy    int
		months int
	}{
		{Monthly, 12, 1},
		{Quarterly, 4, 3},
		{HalfYearly, 2, 6},
		{Yearly, 1, 12},
		{AtMaturity, 0, 0},
	}
	for _, tc := range cases {
		if got := tc.p.PeriodsPerYear(); got != tc.ppy {
			t.Errorf("%s.PeriodsPerYear() = %d, want %d", tc.p, got, tc.ppy)
		}
		if got := tc.p.MonthsPerPeriod(); got != tc.months {
			t.Errorf("%s.MonthsPerPeriod() = %d, want %d", tc.p, got, tc.months)
		}
	}
	if ReturnPeriod("weekly").Valid() {
		t.Error("weekly should not be a valid return period")
	}
}
