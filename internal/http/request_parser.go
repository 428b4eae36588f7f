package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"summa/internal/core"
)

const maxInputLength = 200

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func parseFormOrFail(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return false
	}
	return true
}

// sanitizeInput trims whitespace, strips control characters and bounds the
// length of free-text form fields. Truncation lands on a rune boundary so a
// multi-byte character is dropped whole rather than split.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s)
	if len(s) > maxInputLength {
		cut := maxInputLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// resolveOwner identifies the requesting user from the auth proxy header.
func (s *Server) resolveOwner(r *http.Request) (string, bool) {
	if owner := sanitizeInput(r.Header.Get("X-Auth-Email")); owner != "" {
		return owner, true
	}
	if s.defaultOwner != "" {
		return s.defaultOwner, true
	}
	return "", false
}

// parseDateField accepts both the storage layout and the HTML date input
// layout, normalising to a core.Date.
func parseDateField(value string) (core.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return core.Date{}, fmt.Errorf("date is required")
	}
	if d, err := core.ParseDate(value); err == nil {
		return d, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q", value)
	}
	return core.DateOf(t), nil
}

type expenseForm struct {
	Name       string
	Amount     decimal.Decimal
	CategoryID int64
	Date       core.Date
	Pattern    core.RecurrencePattern
}

func parseExpenseForm(r *http.Request) (expenseForm, error) {
	var form expenseForm

	form.Name = sanitizeInput(r.FormValue("name"))
	if form.Name == "" {
		return form, fmt.Errorf("name is required")
	}

	amount, err := core.ParseAmount(r.FormValue("amount"))
	if err != nil {
		return form, fmt.Errorf("invalid amount: %w", err)
	}
	form.Amount = amount

	categoryID, err := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	if err != nil || categoryID <= 0 {
		return form, fmt.Errorf("invalid category")
	}
	form.CategoryID = categoryID

	form.Date, err = parseDateField(r.FormValue("date"))
	if err != nil {
		return form, err
	}

	pattern := core.RecurrencePattern(strings.TrimSpace(r.FormValue("recurrence")))
	if pattern == "" {
		pattern = core.RecurrenceNone
	}
	if err := pattern.Validate(); err != nil {
		return form, fmt.Errorf("invalid recurrence %q", pattern)
	}
	form.Pattern = pattern

	return form, nil
}

type categoryForm struct {
	Name         string
	BudgetAmount decimal.NullDecimal
}

func parseCategoryForm(r *http.Request) (categoryForm, error) {
	var form categoryForm

	form.Name = sanitizeInput(r.FormValue("name"))
	if form.Name == "" {
		return form, fmt.Errorf("name is required")
	}

	if raw := strings.TrimSpace(r.FormValue("budget_amount")); raw != "" {
		budget, err := core.ParseAmount(raw)
		if err != nil {
			return form, fmt.Errorf("invalid budget: %w", err)
		}
		form.BudgetAmount = decimal.NullDecimal{Decimal: budget, Valid: true}
	}
	return form, nil
}

type incomeForm struct {
	Name            string
	Amount          decimal.Decimal
	TransactionDate core.Date
}

func parseIncomeForm(r *http.Request) (incomeForm, error) {
	var form incomeForm

	form.Name = sanitizeInput(r.FormValue("name"))
	if form.Name == "" {
		return form, fmt.Errorf("name is required")
	}

	amount, err := core.ParseAmount(r.FormValue("amount"))
	if err != nil {
		return form, fmt.Errorf("invalid amount: %w", err)
	}
	form.Amount = amount

	form.TransactionDate, err = parseDateField(r.FormValue("date"))
	if err != nil {
		return form, err
	}
	return form, nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
