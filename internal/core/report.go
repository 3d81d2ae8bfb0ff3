package core

import (
	"sort"
	"strings"
)

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// MonthReport is a compact summary for a specific year+month.
type MonthReport struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"` // 1-12
	Income     Money           `json:"income"`
	Expenses   Money           `json:"expenses"`
	Net        Money           `json:"net"`
	ByCategory []CategoryTotal `json:"by_category"`
}

// BuildMonthReport aggregates a user's transactions for one calendar
// month: income and expense totals, net, and expense totals per category
// sorted largest first.
func BuildMonthReport(txs []Transaction, year, month int) MonthReport {
	report := MonthReport{Year: year, Month: month}
	byCat := make(map[string]int64)

	for _, t := range txs {
		if t.Date.Year() != year || int(t.Date.Month()) != month {
			continue
		}
		switch t.Type {
		case Income:
			report.Income = report.Income.Add(t.Amount)
		case Expense:
			report.Expenses = report.Expenses.Add(t.Amount)
			byCat[t.Category] += t.Amount.Cents
		}
	}
	report.Net = report.Income.Sub(report.Expenses)

	for cat, cents := range byCat {
		report.ByCategory = append(report.ByCategory, CategoryTotal{
			Category: cat,
			Amount:   Money{Cents: cents},
		})
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		if report.ByCategory[i].Amount.Cents != report.ByCategory[j].Amount.Cents {
			return report.ByCategory[i].Amount.Cents > report.ByCategory[j].Amount.Cents
		}
		return strings.ToLower(report.ByCategory[i].Category) < strings.ToLower(report.ByCategory[j].Category)
	})
	return report
}
