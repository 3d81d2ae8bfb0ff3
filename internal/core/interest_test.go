package core

import (
	"testing"
)

func investorTx(start Date, cents int64, rate float64, period ReturnPeriod, months int) Transaction {
	return Transaction{
		ID:       "tx-1",
		UserID:   "u-1",
		Amount:   Money{Cents: cents},
		Type:     Income,
		Category: "Investor Fund",
		Date:     start,
		Investor: &InvestorDetails{
			Name:           "Asha",
			AnnualRatePct:  rate,
			Period:         period,
			DurationMonths: months,
		},
	}
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		start  Date
		months int
		want   Date
	}{
		{"plain month", NewDate(2024, 1, 15), 1, NewDate(2024, 2, 15)},
		{"jan 31 clamps to leap feb", NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)},
		{"jan 31 clamps to feb 28", NewDate(2025, 1, 31), 1, NewDate(2025, 2, 28)},
		{"clamped month does not stick", NewDate(2024, 1, 31), 2, NewDate(2024, 3, 31)},
		{"aug 31 to sep 30", NewDate(2024, 8, 31), 1, NewDate(2024, 9, 30)},
		{"year rollover", NewDate(2024, 11, 30), 3, NewDate(2025, 2, 28)},
		{"twelve months", NewDate(2024, 2, 29), 12, NewDate(2025, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.AddMonthsClamped(tt.months)
			if !got.Equal(tt.want.Time) {
				t.Errorf("AddMonthsClamped(%d) = %v, want %v", tt.months, got, tt.want)
			}
		})
	}
}

func TestPeriodicInterest(t *testing.T) {
	tests := []struct {
		name      string
		principal int64
		rate      float64
		period    ReturnPeriod
		want      int64
	}{
		{"monthly 12% of 100k", 10000000, 12, Monthly, 100000},
		{"quarterly 12% of 100k", 10000000, 12, Quarterly, 300000},
		{"half-yearly 12% of 100k", 10000000, 12, HalfYearly, 600000},
		{"yearly 12% of 100k", 10000000, 12, Yearly, 1200000},
		{"half-up rounding", 100001, 10, Monthly, 833}, // 833.34... cents/month
		{"maturity has no periodic", 10000000, 12, AtMaturity, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeriodicInterest(Money{Cents: tt.principal}, tt.rate, tt.period)
			if got.Cents != tt.want {
				t.Errorf("PeriodicInterest() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestMaturityInterest(t *testing.T) {
	// 100k at 12% for 18 months = 18k
	got := MaturityInterest(Money{Cents: 10000000}, 12, 18)
	if got.Cents != 1800000 {
		t.Fatalf("MaturityInterest() = %d, want 1800000", got.Cents)
	}
}

func TestProjectMonthlyClampsMonthEnd(t *testing.T) {
	// Started Jan 31, 2024: dues land on Feb 29, Mar 31, then maturity Apr 30.
	tx := investorTx(NewDate(2024, 1, 31), 12000000, 10, Monthly, 3)

	events := Project(tx, DueWindow(NewDate(2024, 12, 31)))
	wantDates := []Date{
		NewDate(2024, 2, 29),
		NewDate(2024, 3, 31),
		NewDate(2024, 4, 30), // interest at maturity
		NewDate(2024, 4, 30), // principal
	}
	if len(events) != len(wantDates) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(wantDates), events)
	}
	for i, ev := range events {
		if !ev.Date.Equal(wantDates[i].Time) {
			t.Errorf("event %d date = %v, want %v", i, ev.Date, wantDates[i])
		}
	}
	if events[3].Kind != EventMaturity || events[3].Amount.Cents != 12000000 {
		t.Errorf("last event should return the principal, got %+v", events[3])
	}
	// 120k at 10% is 1k/month
	if events[0].Kind != EventInterest || events[0].Amount.Cents != 100000 {
		t.Errorf("periodic interest = %+v, want 100000 cents", events[0])
	}
}

func TestProjectStopsAtMaturity(t *testing.T) {
	tx := investorTx(NewDate(2024, 1, 15), 10000000, 12, Quarterly, 12)
	events := Project(tx, DueWindow(NewDate(2030, 1, 1)))

	var interest int
	for _, ev := range events {
		if ev.Kind == EventInterest {
			interest++
			if ev.Date.After(NewDate(2025, 1, 15).Time) {
				t.Errorf("interest event past maturity: %+v", ev)
			}
		}
	}
	if interest != 4 {
		t.Errorf("got %d quarterly interest events over 12 months, want 4", interest)
	}
}

func TestProjectDueWindowCutsOff(t *testing.T) {
	tx := investorTx(NewDate(2024, 1, 15), 10000000, 12, Monthly, 12)

	// As of Mar 20 only the Feb 15 and Mar 15 dues have accrued.
	events := Project(tx, DueWindow(NewDate(2024, 3, 20)))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
}

func TestProjectUpcomingWindow(t *testing.T) {
	tx := investorTx(NewDate(2024, 1, 15), 10000000, 12, Monthly, 12)

	// (Mar 20, Apr 19]: only the Apr 15 due.
	events := Project(tx, UpcomingWindow(NewDate(2024, 3, 20), 30))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	if !events[0].Date.Equal(NewDate(2024, 4, 15).Time) {
		t.Errorf("event date = %v, want 2024-04-15", events[0].Date)
	}
	// Window edges: the as-of date itself is excluded.
	events = Project(tx, UpcomingWindow(NewDate(2024, 4, 15), 30))
	if len(events) != 1 || !events[0].Date.Equal(NewDate(2024, 5, 15).Time) {
		t.Errorf("as-of date should be excluded from upcoming window, got %+v", events)
	}
}

func TestProjectAtMaturity(t *testing.T) {
	tx := investorTx(NewDate(2024, 1, 31), 10000000, 12, AtMaturity, 6)

	// Not yet due.
	if events := Project(tx, DueWindow(NewDate(2024, 7, 30))); len(events) != 0 {
		t.Fatalf("nothing should be due before maturity, got %+v", events)
	}

	// Jul 31, 2024: lump interest plus principal.
	events := Project(tx, DueWindow(NewDate(2024, 7, 31)))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	// 100k at 12% for 6 months = 6k
	if events[0].Kind != EventInterest || events[0].Amount.Cents != 600000 {
		t.Errorf("maturity interest = %+v, want 600000 cents", events[0])
	}
	if events[1].Kind != EventMaturity || events[1].Amount.Cents != 10000000 {
		t.Errorf("principal event = %+v", events[1])
	}
}

func TestProjectPrecomputedPeriodicAmountWins(t *testing.T) {
	tx := investorTx(NewDate(2024, 1, 1), 10000000, 12, Monthly, 2)
	tx.Investor.PeriodicAmount = Money{Cents: 123456}

	events := Project(tx, DueWindow(NewDate(2024, 12, 31)))
	if len(events) == 0 || events[0].Amount.Cents != 123456 {
		t.Fatalf("precomputed periodic amount should win, got %+v", events)
	}
}

func TestProjectSkipsNonInvestorTransactions(t *testing.T) {
	plain := Transaction{
		ID: "tx-2", UserID: "u-1", Amount: Money{Cents: 500},
		Type: Expense, Category: "Groceries", Date: NewDate(2024, 1, 1),
	}
	if events := Project(plain, DueWindow(NewDate(2030, 1, 1))); events != nil {
		t.Fatalf("expected no events for plain transaction, got %+v", events)
	}
}

func TestProjectAllSortsByDate(t *testing.T) {
	a := investorTx(NewDate(2024, 2, 10), 10000000, 12, Monthly, 2)
	a.ID = "a"
	b := investorTx(NewDate(2024, 1, 5), 10000000, 12, Monthly, 3)
	b.ID = "b"

	events := ProjectAll([]Transaction{a, b}, DueWindow(NewDate(2024, 12, 31)))
	for i := 1; i < len(events); i++ {
		if events[i].Date.Before(events[i-1].Date.Time) {
			t.Fatalf("events out of order at %d: %+v", i, events)
		}
	}
}
