package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RecurrenceNone     RecurrencePattern = "none"
	RecurrenceWeekly   RecurrencePattern = "weekly"
	RecurrenceBiweekly RecurrencePattern = "biweekly"
	RecurrenceMonthly  RecurrencePattern = "monthly"
	RecurrenceYearly   RecurrencePattern = "yearly"
)

// DateLayout is the calendar-date wire format used throughout the
// application, including the expenses.created_at column.
const DateLayout = "01-02-2006" // MM-DD-YYYY

type (
	RecurrencePattern string

	// Date is a calendar date with no time-of-day component.
	// The zero value marks a missing or unparseable date.
	Date struct {
		time.Time
	}

	Expense struct {
		ID         int64
		Name       string
		Amount     decimal.Decimal
		CategoryID int64
		CreatedAt  Date // occurrence date, NOT record-insertion time
		CreatedBy  string
	}

	Category struct {
		ID           int64
		Name         string
		Icon         string
		BudgetAmount decimal.NullDecimal
		CreatedBy    string
	}

	Income struct {
		ID              int64
		Name            string
		Amount          decimal.Decimal
		TransactionDate Date
		CreatedBy       string
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingCategory = errors.New("missing category")
	ErrMissingDate     = errors.New("missing transaction date")
	ErrMissingOwner    = errors.New("missing owner")
	ErrInvalidPattern  = errors.New("invalid recurrence pattern")
)

// NewDate creates a Date from year, month, day, normalized to midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a MM-DD-YYYY string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// DateOf truncates an arbitrary timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date in UTC.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// String formats the date in MM-DD-YYYY form.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// After reports whether d is strictly after other, comparing calendar dates only.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// OnOrBefore reports whether d is on or before other (boundary inclusive).
func (d Date) OnOrBefore(other Date) bool {
	return !d.Time.After(other.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (p RecurrencePattern) Validate() error {
	switch p {
	case RecurrenceNone, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly, RecurrenceYearly:
		return nil
	default:
		return ErrInvalidPattern
	}
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if err := e.CreatedAt.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.CreatedBy) == "" {
		return ErrMissingOwner
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if c.BudgetAmount.Valid && c.BudgetAmount.Decimal.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(c.CreatedBy) == "" {
		return ErrMissingOwner
	}
	return nil
}

func (i Income) Validate() error {
	if len(strings.TrimSpace(i.Name)) == 0 {
		return ErrEmptyName
	}
	if !i.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := i.TransactionDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.CreatedBy) == "" {
		return ErrMissingOwner
	}
	return nil
}
