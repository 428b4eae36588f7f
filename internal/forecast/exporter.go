// Package forecast produces spending predictions by exporting expense
// history to CSV and handing it to an external prediction script.
package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"summa/internal/core"
)

// The model needs at least this many distinct calendar months of history
// to produce anything useful.
const minDistinctMonths = 4

var (
	ErrNoExpenses      = errors.New("no expenses found for the user")
	ErrNotEnoughMonths = errors.New("not enough months, please try again after 4 months worth of expenses")
)

// writeCSV exports expenses in the column layout the prediction script
// expects. Rows without a readable date are skipped.
func writeCSV(path string, expenses []core.Expense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"amount", "categoryId", "createdAt"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		if e.CreatedAt.IsZero() {
			continue
		}
		record := []string{
			e.Amount.String(),
			strconv.FormatInt(e.CategoryID, 10),
			e.CreatedAt.String(),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// distinctMonths counts distinct year-month pairs among the expense dates.
func distinctMonths(expenses []core.Expense) int {
	seen := make(map[string]bool)
	for _, e := range expenses {
		if e.CreatedAt.IsZero() {
			continue
		}
		seen[e.CreatedAt.Format("2006-01")] = true
	}
	return len(seen)
}
