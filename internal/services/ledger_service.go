package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fundbook/internal/core"
)

// DefaultCalendarDays is the upcoming-dues horizon when the caller does
// not ask for one.
const DefaultCalendarDays = 30

// Adviser produces advice text for the given financial snapshot.
type Adviser interface {
	Advise(ctx context.Context, txs []core.Transaction, ledgers []core.InvestorLedger) string
}

// Overview is the dashboard payload: investor positions, upcoming dues
// and the current month's totals in one response.
type Overview struct {
	Ledgers  []core.InvestorLedger `json:"ledgers"`
	Upcoming []core.ScheduleEvent  `json:"upcoming"`
	Month    core.MonthReport      `json:"month"`
}

// LedgerService answers the read-side questions: per-investor positions,
// upcoming dues, month reports and advice.
type LedgerService struct {
	store   TransactionStore
	adviser Adviser
	now     func() time.Time
}

func NewLedgerService(store TransactionStore, adviser Adviser) *LedgerService {
	return &LedgerService{store: store, adviser: adviser, now: time.Now}
}

// InvestorLedgers aggregates all of the user's transactions into one
// ledger per investor, with interest accrued up to today.
func (s *LedgerService) InvestorLedgers(ctx context.Context, userID string) ([]core.InvestorLedger, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.BuildInvestorLedgers(txs, s.today()), nil
}

// UpcomingCalendar lists interest and maturity events falling due within
// the next `days` days. Non-positive days means DefaultCalendarDays.
func (s *LedgerService) UpcomingCalendar(ctx context.Context, userID string, days int) ([]core.ScheduleEvent, error) {
	if days <= 0 {
		days = DefaultCalendarDays
	}
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return core.UpcomingEvents(txs, s.today(), days), nil
}

// MonthReport totals one calendar month of activity.
func (s *LedgerService) MonthReport(ctx context.Context, userID string, year, month int) (core.MonthReport, error) {
	txs, err := s.store.ListMonthTransactions(ctx, userID, year, month)
	if err != nil {
		return core.MonthReport{}, fmt.Errorf("list month transactions: %w", err)
	}
	return core.BuildMonthReport(txs, year, month), nil
}

// BuildOverview assembles the dashboard. The full history and the current
// month slice are separate queries, so they run concurrently.
func (s *LedgerService) BuildOverview(ctx context.Context, userID string) (Overview, error) {
	var (
		out Overview
		now = s.now()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx, userID)
		if err != nil {
			return err
		}
		today := core.DateOf(now)
		out.Ledgers = core.BuildInvestorLedgers(txs, today)
		out.Upcoming = core.UpcomingEvents(txs, today, DefaultCalendarDays)
		return nil
	})
	g.Go(func() error {
		txs, err := s.store.ListMonthTransactions(gctx, userID, now.Year(), int(now.Month()))
		if err != nil {
			return err
		}
		out.Month = core.BuildMonthReport(txs, now.Year(), int(now.Month()))
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("build overview: %w", err)
	}
	return out, nil
}

// Advice asks the adviser for suggestions based on the user's history
// and investor positions.
func (s *LedgerService) Advice(ctx context.Context, userID string) (string, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}
	ledgers := core.BuildInvestorLedgers(txs, s.today())
	return s.adviser.Advise(ctx, txs, ledgers), nil
}

func (s *LedgerService) today() core.Date {
	return core.DateOf(s.now())
}
