package core

import "sort"

const (
	EventInterest EventKind = "interest"
	EventMaturity EventKind = "maturity"
)

type (
	EventKind string

	// ScheduleEvent is one projected due amount for an investor fund:
	// either a periodic interest payment or the principal coming back at
	// maturity.
	ScheduleEvent struct {
		TransactionID string    `json:"transaction_id"`
		Investor      string    `json:"investor"`
		Date          Date      `json:"date"`
		Amount        Money     `json:"amount"`
		Kind          EventKind `json:"kind"`
	}

	// Window selects which projected events a caller wants. From is
	// exclusive, To inclusive; a zero From leaves the window open on the
	// left.
	Window struct {
		From Date
		To   Date
	}
)

// DueWindow selects everything already due: (-inf, asOf].
func DueWindow(asOf Date) Window {
	return Window{To: asOf}
}

// UpcomingWindow selects forward-looking events: (asOf, asOf+days].
func UpcomingWindow(asOf Date, days int) Window {
	return Window{From: asOf, To: DateOf(asOf.AddDate(0, 0, days))}
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	if !w.From.IsZero() && !d.After(w.From.Time) {
		return false
	}
	return !d.After(w.To.Time)
}

// PeriodicInterest derives the per-period interest amount:
// (principal x rate / 100) / periods-per-year, rounded half-up to cents.
// AtMaturity has no periodic amount and yields zero.
func PeriodicInterest(principal Money, ratePct float64, period ReturnPeriod) Money {
	ppy := period.PeriodsPerYear()
	if ppy == 0 {
		return Money{}
	}
	annual := float64(principal.Cents) * ratePct / 100
	return Money{Cents: roundCents(annual / float64(ppy))}
}

// MaturityInterest is the lump interest for an AtMaturity fund: annual
// interest scaled by the duration as a fraction of a year.
func MaturityInterest(principal Money, ratePct float64, durationMonths int) Money {
	annual := float64(principal.Cents) * ratePct / 100
	return Money{Cents: roundCents(annual * float64(durationMonths) / 12)}
}

// Project walks one investor transaction and returns its due events inside
// the window, in date order.
//
// For periodic funds the due dates are start + n periods (n = 1, 2, ...)
// using calendar-month arithmetic with day-of-month clamping, so a fund
// started Jan 31 is due Feb 28 (29 in leap years), then Mar 31. The walk
// stops once a projected date passes the maturity date. AtMaturity funds
// contribute a single interest event on the maturity date. Every fund also
// contributes the principal itself as a maturity event.
//
// Non-investor transactions project to nothing.
func Project(t Transaction, w Window) []ScheduleEvent {
	if !t.IsInvestorFund() {
		return nil
	}
	inv := t.Investor
	maturity, _ := t.MaturityDate()

	var events []ScheduleEvent
	emit := func(d Date, amount Money, kind EventKind) {
		if !w.Contains(d) {
			return
		}
		events = append(events, ScheduleEvent{
			TransactionID: t.ID,
			Investor:      inv.Name,
			Date:          d,
			Amount:        amount,
			Kind:          kind,
		})
	}

	if inv.Period == AtMaturity {
		emit(maturity, MaturityInterest(t.Amount, inv.AnnualRatePct, inv.DurationMonths), EventInterest)
	} else {
		amount := inv.PeriodicAmount
		if amount.Cents == 0 {
			amount = PeriodicInterest(t.Amount, inv.AnnualRatePct, inv.Period)
		}
		step := inv.Period.MonthsPerPeriod()
		for n := 1; ; n++ {
			due := t.Date.AddMonthsClamped(n * step)
			if due.After(maturity.Time) {
				break
			}
			emit(due, amount, EventInterest)
		}
	}

	emit(maturity, t.Amount, EventMaturity)
	return events
}

// ProjectAll projects every investor transaction in txs and returns the
// merged events sorted by date, interest before principal on equal dates.
func ProjectAll(txs []Transaction, w Window) []ScheduleEvent {
	var events []ScheduleEvent
	for _, t := range txs {
		events = append(events, Project(t, w)...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date.Time) {
			return events[i].Date.Before(events[j].Date.Time)
		}
		return events[i].Kind == EventInterest && events[j].Kind == EventMaturity
	})
	return events
}
