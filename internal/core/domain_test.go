package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want Date
	}{
		{"06-15-2025", true, NewDate(2025, 6, 15)},
		{"01-31-2025", true, NewDate(2025, 1, 31)},
		{" 12-01-2024 ", true, NewDate(2024, 12, 1)},
		{"2025-06-15", false, Date{}},
		{"13-01-2025", false, Date{}},
		{"", false, Date{}},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok && (err != nil || !got.Equal(tc.want.Time)) {
			t.Fatalf("ParseDate(%q): got %v, %v", tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseDate(%q): expected error", tc.in)
		}
	}
}

func TestDateRoundTrip(t *testing.T) {
	d := NewDate(2025, 3, 8)
	if d.String() != "03-08-2025" {
		t.Fatalf("expected 03-08-2025, got %s", d.String())
	}
	back, err := ParseDate(d.String())
	if err != nil || !back.Equal(d.Time) {
		t.Fatalf("round trip failed: %v, %v", back, err)
	}
}

func TestDateOfStripsTime(t *testing.T) {
	ts := time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC)
	d := DateOf(ts)
	if !d.Equal(NewDate(2025, 6, 15).Time) {
		t.Fatalf("expected calendar date only, got %v", d)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Name:       "Walmart",
		Amount:     decimal.NewFromInt(50),
		CategoryID: 1,
		CreatedAt:  NewDate(2025, 6, 15),
		CreatedBy:  "user@example.com",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"empty name", func(e *Expense) { e.Name = "  " }, ErrEmptyName},
		{"zero amount", func(e *Expense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"no category", func(e *Expense) { e.CategoryID = 0 }, ErrMissingCategory},
		{"no date", func(e *Expense) { e.CreatedAt = Date{} }, ErrMissingDate},
		{"no owner", func(e *Expense) { e.CreatedBy = "" }, ErrMissingOwner},
	}
	for _, tc := range cases {
		e := good
		tc.mutate(&e)
		if err := e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRecurrencePatternValidate(t *testing.T) {
	for _, p := range []RecurrencePattern{RecurrenceNone, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly, RecurrenceYearly} {
		if err := p.Validate(); err != nil {
			t.Fatalf("%s: expected valid, got %v", p, err)
		}
	}
	if err := RecurrencePattern("daily").Validate(); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want string
	}{
		{"50", true, "50"},
		{"12.34", true, "12.34"},
		{"12,34", true, "12.34"},
		{"0", false, ""},
		{"-3", false, ""},
		{"abc", false, ""},
		{"", false, ""},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseAmount(%q): unexpected error %v", tc.in, err)
			}
			want, _ := decimal.NewFromString(tc.want)
			if !got.Equal(want) {
				t.Fatalf("ParseAmount(%q): expected %s, got %s", tc.in, want, got)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q): expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	if got := FormatUSD(decimal.NewFromFloat(12.3)); got != "$12.30" {
		t.Fatalf("expected $12.30, got %s", got)
	}
	if got := FormatUSD(decimal.NewFromInt(-7)); got != "-$7.00" {
		t.Fatalf("expected -$7.00, got %s", got)
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Name: "Groceries", Icon: "🛒", CreatedBy: "user@example.com"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.BudgetAmount = decimal.NewNullDecimal(decimal.NewFromInt(-1))
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
