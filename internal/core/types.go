package core

import (
	"errors"
	"strings"
	"time"
)

// Validation errors returned by Validate methods.
var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyUser       = errors.New("user id is required")
	ErrEmptyCategory   = errors.New("category is required")
	ErrEmptyInvestor   = errors.New("investor name is required")
	ErrInvalidRate     = errors.New("invalid annual rate")
	ErrInvalidPeriod   = errors.New("invalid return period")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvestorType    = errors.New("investor details require an income transaction")
)

type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ReturnPeriod is how often an investor fund pays interest.
type ReturnPeriod string

const (
	Monthly    ReturnPeriod = "monthly"
	Quarterly  ReturnPeriod = "quarterly"
	HalfYearly ReturnPeriod = "half-yearly"
	Yearly     ReturnPeriod = "yearly"
	AtMaturity ReturnPeriod = "maturity"
)

func (p ReturnPeriod) Valid() bool {
	switch p {
	case Monthly, Quarterly, HalfYearly, Yearly, AtMaturity:
		return true
	}
	return false
}

// PeriodsPerYear returns how many interest payments fall in a year, zero
// for AtMaturity.
func (p ReturnPeriod) PeriodsPerYear() int {
	switch p {
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case HalfYearly:
		return 2
	case Yearly:
		return 1
	}
	return 0
}

// MonthsPerPeriod returns the calendar-month step between payments, zero
// for AtMaturity.
func (p ReturnPeriod) MonthsPerPeriod() int {
	switch p {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case HalfYearly:
		return 6
	case Yearly:
		return 12
	}
	return 0
}

// Date is a calendar day. The time of day is always midnight UTC so
// comparisons behave as day comparisons.
type Date struct {
	time.Time
}

func NewDate(year, month, day int) Date {
	return Date{time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// AddMonthsClamped adds n calendar months, clamping the day to the last
// day of the target month. Jan 31 + 1 month is Feb 28 (29 in leap
// years), not Mar 2.
func (d Date) AddMonthsClamped(n int) Date {
	year, month, day := d.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return Date{time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)}
}

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return ErrInvalidDate
	}
	*d = DateOf(t)
	return nil
}

// Money is an amount in whole cents. All arithmetic is integer to keep
// totals exact.
type Money struct {
	Cents int64 `json:"cents"`
}

// User is a profile tracked in the local database.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// InvestorDetails marks an income transaction as borrowed capital: who
// lent it, at what annual rate, paid back on what schedule.
//
// PeriodicAmount, when non-zero, overrides the derived per-period
// interest. DurationMonths runs from the transaction date to maturity.
type InvestorDetails struct {
	Name           string       `json:"name"`
	AnnualRatePct  float64      `json:"annual_rate_pct"`
	Period         ReturnPeriod `json:"period"`
	DurationMonths int          `json:"duration_months"`
	Purpose        string       `json:"purpose,omitempty"`
	PeriodicAmount Money        `json:"periodic_amount"`
}

func (d InvestorDetails) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyInvestor
	}
	if d.AnnualRatePct <= 0 || d.AnnualRatePct > 100 {
		return ErrInvalidRate
	}
	if !d.Period.Valid() {
		return ErrInvalidPeriod
	}
	if d.DurationMonths <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// Transaction is one money movement: regular income, an expense, or an
// investor fund (income carrying InvestorDetails).
type Transaction struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Amount      Money            `json:"amount"`
	Type        TransactionType  `json:"type"`
	Category    string           `json:"category"`
	PaymentMode string           `json:"payment_mode,omitempty"`
	Date        Date             `json:"date"`
	Note        string           `json:"note,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Investor    *InvestorDetails `json:"investor,omitempty"`
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.Investor != nil {
		if t.Type != Income {
			return ErrInvestorType
		}
		if err := t.Investor.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsInvestorFund reports whether this transaction is borrowed capital
// that accrues interest.
func (t Transaction) IsInvestorFund() bool {
	return t.Investor != nil && t.Type == Income
}

// MaturityDate is the day the principal falls due: the start date plus
// the fund's duration, day-clamped. False for non-investor transactions.
func (t Transaction) MaturityDate() (Date, bool) {
	if !t.IsInvestorFund() {
		return Date{}, false
	}
	return t.Date.AddMonthsClamped(t.Investor.DurationMonths), true
}
