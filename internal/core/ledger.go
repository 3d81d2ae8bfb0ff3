package core

import (
	"sort"
	"strings"
)

// InvestorLedger is the per-investor position: funds received, interest
// accrued to date, payments made back, and what remains outstanding.
type InvestorLedger struct {
	Name            string `json:"name"`
	Principal       Money  `json:"principal"`
	AccruedInterest Money  `json:"accrued_interest"`
	Payments        Money  `json:"payments"`
	Outstanding     Money  `json:"outstanding"`
	Funds           int    `json:"funds"`
}

// BuildInvestorLedgers groups transactions by investor name
// (case-insensitive) and computes each investor's position as of today.
//
// Principal sums income entries carrying investor details. Accrued
// interest sums projected interest events due on or before today.
// Payments sum expense transactions whose category matches the investor
// name. The displayed casing is the most recently recorded income entry's.
func BuildInvestorLedgers(txs []Transaction, today Date) []InvestorLedger {
	type bucket struct {
		ledger   InvestorLedger
		recorded int // creation order of the entry that set the display name
	}
	buckets := make(map[string]*bucket)

	get := func(name string) *bucket {
		key := strings.ToLower(strings.TrimSpace(name))
		b, ok := buckets[key]
		if !ok {
			b = &bucket{ledger: InvestorLedger{Name: strings.TrimSpace(name)}, recorded: -1}
			buckets[key] = b
		}
		return b
	}

	due := DueWindow(today)
	for i, t := range txs {
		if t.IsInvestorFund() {
			b := get(t.Investor.Name)
			b.ledger.Principal = b.ledger.Principal.Add(t.Amount)
			b.ledger.Funds++
			if i > b.recorded || b.recorded < 0 {
				b.ledger.Name = strings.TrimSpace(t.Investor.Name)
				b.recorded = i
			}
			for _, ev := range Project(t, due) {
				if ev.Kind == EventInterest {
					b.ledger.AccruedInterest = b.ledger.AccruedInterest.Add(ev.Amount)
				}
			}
		}
	}

	// Payments are expenses categorized under the investor's name. Only
	// names seen as investors count; an arbitrary expense category does
	// not open a ledger.
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(t.Category))
		if b, ok := buckets[key]; ok {
			b.ledger.Payments = b.ledger.Payments.Add(t.Amount)
		}
	}

	ledgers := make([]InvestorLedger, 0, len(buckets))
	for _, b := range buckets {
		l := b.ledger
		l.Outstanding = l.Principal.Add(l.AccruedInterest).Sub(l.Payments)
		ledgers = append(ledgers, l)
	}
	sort.Slice(ledgers, func(i, j int) bool {
		return strings.ToLower(ledgers[i].Name) < strings.ToLower(ledgers[j].Name)
	})
	return ledgers
}

// UpcomingEvents returns every projected due event across txs falling in
// the next `days` days after asOf, sorted by date.
func UpcomingEvents(txs []Transaction, asOf Date, days int) []ScheduleEvent {
	return ProjectAll(txs, UpcomingWindow(asOf, days))
}
