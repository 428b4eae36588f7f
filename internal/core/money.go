// Package core holds the domain model: calendar dates, money amounts,
// expenses, categories, income, and the recurrence logic built on them.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied amount string to a decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// requires a strictly positive result. Returns ErrInvalidAmount for
// anything else.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatUSD renders an amount as a dollar string with two decimals.
func FormatUSD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// SpendingOverview is a compact per-owner summary over a date range.
type SpendingOverview struct {
	From        Date
	To          Date
	TotalSpend  decimal.Decimal
	TotalIncome decimal.Decimal
	ByCategory  []CategoryAmount
}
