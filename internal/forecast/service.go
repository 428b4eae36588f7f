package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"summa/internal/core"
)

// ExpenseReader provides the history the model trains on.
type ExpenseReader interface {
	ListExpensesByOwner(ctx context.Context, owner string) ([]core.Expense, error)
}

// Service runs one forecast end to end: export, predict, clean up.
type Service struct {
	store      ExpenseReader
	runner     Runner
	scratchDir string
}

func NewService(store ExpenseReader, runner Runner, scratchDir string) *Service {
	return &Service{store: store, runner: runner, scratchDir: scratchDir}
}

// Forecast returns the raw prediction JSON for one owner. The salt keys
// the scratch files so concurrent runs cannot clobber each other.
func (s *Service) Forecast(ctx context.Context, owner string) (string, error) {
	expenses, err := s.store.ListExpensesByOwner(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("fetch expenses: %w", err)
	}
	if len(expenses) == 0 {
		return "", ErrNoExpenses
	}
	if months := distinctMonths(expenses); months < minDistinctMonths {
		slog.InfoContext(ctx, "Not enough history for a forecast",
			"owner", owner, "months", months)
		return "", ErrNotEnoughMonths
	}

	salt := uuid.NewString()
	csvPath := filepath.Join(s.scratchDir, salt+".csv")
	jsonPath := filepath.Join(s.scratchDir, salt+".json")
	defer func() {
		os.Remove(csvPath)
		os.Remove(jsonPath)
	}()

	if err := writeCSV(csvPath, expenses); err != nil {
		return "", err
	}

	result, err := s.runner.Run(ctx, salt)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Forecast complete", "owner", owner, "rows", len(expenses))
	return result, nil
}
