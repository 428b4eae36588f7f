// Package memory is an in-memory stand-in for the spreadsheet backup,
// used in tests and when no Google credentials are configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"summa/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.BackupRow
}

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row sheets.BackupRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// DeleteExpense removes the row carrying this expense id, if present.
func (s *Store) DeleteExpense(_ context.Context, expenseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ExpenseID == expenseID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the stored rows.
func (s *Store) Rows() []sheets.BackupRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.BackupRow(nil), s.rows...)
}
