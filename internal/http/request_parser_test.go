package http

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"summa/internal/core"
)

func TestSanitizeInput(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Groceries  ", "Groceries"},
		{"line\x00break\x07", "linebreak"},
		{"tab\tok", "tab\tok"},
		{strings.Repeat("x", 300), strings.Repeat("x", maxInputLength)},
	}
	for _, tc := range cases {
		if got := sanitizeInput(tc.in); got != tc.want {
			t.Fatalf("sanitizeInput(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeInputTruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes; 150 of them exceed the byte limit mid-rune unless
	// truncation backs up to a boundary.
	in := strings.Repeat("é", 150)
	got := sanitizeInput(in)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated value is not valid UTF-8: %q", got)
	}
	if len(got) > maxInputLength {
		t.Fatalf("len = %d, want <= %d", len(got), maxInputLength)
	}
	if want := strings.Repeat("é", 100); got != want {
		t.Fatalf("expected 100 whole runes, got %d bytes", len(got))
	}
}

func TestParseDateField(t *testing.T) {
	d, err := parseDateField("03-15-2025")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "03-15-2025" {
		t.Fatalf("expected 03-15-2025, got %s", d)
	}

	d, err = parseDateField("2025-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "03-15-2025" {
		t.Fatalf("expected ISO input normalised to 03-15-2025, got %s", d)
	}

	if _, err := parseDateField(""); err == nil {
		t.Fatal("expected error for empty date")
	}
	if _, err := parseDateField("15/03/2025"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}

func TestParseExpenseForm(t *testing.T) {
	r := httptest.NewRequest("POST", "/expenses", strings.NewReader(url.Values{
		"name":        {" Rent "},
		"amount":      {"1200.50"},
		"category_id": {"3"},
		"date":        {"01-01-2025"},
		"recurrence":  {"monthly"},
	}.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := r.ParseForm(); err != nil {
		t.Fatal(err)
	}

	form, err := parseExpenseForm(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Name != "Rent" {
		t.Fatalf("expected trimmed name, got %q", form.Name)
	}
	if form.Amount.String() != "1200.5" {
		t.Fatalf("expected 1200.5, got %s", form.Amount)
	}
	if form.CategoryID != 3 {
		t.Fatalf("expected category 3, got %d", form.CategoryID)
	}
	if form.Pattern != core.RecurrenceMonthly {
		t.Fatalf("expected monthly, got %s", form.Pattern)
	}
}

func TestParseExpenseFormDefaultsRecurrence(t *testing.T) {
	r := httptest.NewRequest("POST", "/expenses", strings.NewReader(url.Values{
		"name":        {"Coffee"},
		"amount":      {"4"},
		"category_id": {"1"},
		"date":        {"05-01-2025"},
	}.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := r.ParseForm(); err != nil {
		t.Fatal(err)
	}

	form, err := parseExpenseForm(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Pattern != core.RecurrenceNone {
		t.Fatalf("expected none, got %s", form.Pattern)
	}
}

func TestParseExpenseFormRejections(t *testing.T) {
	base := url.Values{
		"name":        {"Rent"},
		"amount":      {"1200"},
		"category_id": {"3"},
		"date":        {"01-01-2025"},
		"recurrence":  {"monthly"},
	}
	cases := []struct {
		name  string
		field string
		value string
	}{
		{"empty name", "name", "  "},
		{"bad amount", "amount", "abc"},
		{"zero amount", "amount", "0"},
		{"bad category", "category_id", "x"},
		{"negative category", "category_id", "-1"},
		{"bad date", "date", "bogus"},
		{"bad recurrence", "recurrence", "hourly"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values := url.Values{}
			for k, v := range base {
				values[k] = v
			}
			values.Set(tc.field, tc.value)
			r := httptest.NewRequest("POST", "/expenses", strings.NewReader(values.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if _, err := parseExpenseForm(r); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}
