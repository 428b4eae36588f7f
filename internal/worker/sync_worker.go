// Package worker processes queued background jobs: spreadsheet backup of
// expense rows and spending forecast runs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"summa/internal/amqp"
	"summa/internal/core"
	"summa/internal/sheets"
	"summa/internal/storage"
)

// Store is the persistence surface the worker needs.
type Store interface {
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	GetCategory(ctx context.Context, id int64, owner string) (core.Category, error)
	GetPendingSyncExpenses(ctx context.Context, limit int) ([]storage.PendingSyncExpense, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
	MarkForecastDone(ctx context.Context, id, resultJSON string) error
	MarkForecastFailed(ctx context.Context, id, reason string) error
}

// Forecaster runs one forecast for an owner.
type Forecaster interface {
	Forecast(ctx context.Context, owner string) (string, error)
}

// SyncWorker consumes queue messages and keeps the spreadsheet backup and
// forecast jobs up to date.
type SyncWorker struct {
	store      Store
	writer     sheets.ExpenseWriter
	deleter    sheets.ExpenseDeleter
	forecaster Forecaster
	batchSize  int
}

func NewSyncWorker(store Store, writer sheets.ExpenseWriter, deleter sheets.ExpenseDeleter, forecaster Forecaster, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:      store,
		writer:     writer,
		deleter:    deleter,
		forecaster: forecaster,
		batchSize:  batchSize,
	}
}

// HandleMessage dispatches one queue message. A returned error requeues
// the message; permanent failures are recorded and acked.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeExpenseSync:
		return w.handleSync(ctx, msg.ExpenseID)
	case amqp.TypeExpenseDelete:
		return w.handleDelete(ctx, msg.ExpenseID)
	case amqp.TypeForecastRequest:
		return w.handleForecast(ctx, msg.JobID, msg.Owner)
	default:
		// Validation upstream makes this unreachable; drop rather than requeue.
		slog.ErrorContext(ctx, "Unknown message type", "type", msg.Type)
		return nil
	}
}

func (w *SyncWorker) handleSync(ctx context.Context, expenseID int64) error {
	expense, err := w.store.GetExpense(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before the worker got to it.
		slog.WarnContext(ctx, "Expense gone before sync, skipping", "id", expenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense %d: %w", expenseID, err)
	}

	return w.syncExpense(ctx, expense)
}

func (w *SyncWorker) syncExpense(ctx context.Context, expense core.Expense) error {
	categoryName := ""
	if category, err := w.store.GetCategory(ctx, expense.CategoryID, expense.CreatedBy); err == nil {
		categoryName = category.Name
	} else {
		slog.WarnContext(ctx, "Category lookup failed, syncing without name",
			"expense_id", expense.ID, "category_id", expense.CategoryID, "error", err)
	}

	row := sheets.BackupRow{
		ExpenseID: expense.ID,
		Date:      expense.CreatedAt,
		Name:      expense.Name,
		Amount:    expense.Amount,
		Category:  categoryName,
		Owner:     expense.CreatedBy,
	}

	ref, err := w.writer.Append(ctx, row)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, expense.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", expense.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkSynced(ctx, expense.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", expense.ID, "error", err)
		// The backup row exists; don't requeue.
	}

	slog.InfoContext(ctx, "Synced expense to backup sheet",
		"id", expense.ID, "sheets_ref", ref, "name", expense.Name)
	return nil
}

func (w *SyncWorker) handleDelete(ctx context.Context, expenseID int64) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No deleter configured, skipping backup deletion", "id", expenseID)
		return nil
	}
	if err := w.deleter.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("delete backup row %d: %w", expenseID, err)
	}
	return nil
}

func (w *SyncWorker) handleForecast(ctx context.Context, jobID, owner string) error {
	if w.forecaster == nil {
		return w.store.MarkForecastFailed(ctx, jobID, "forecasting not configured")
	}

	result, err := w.forecaster.Forecast(ctx, owner)
	if err != nil {
		// Forecast failures are terminal for the job; requeueing would just
		// rerun the model on the same data.
		slog.WarnContext(ctx, "Forecast failed", "job_id", jobID, "owner", owner, "error", err)
		if markErr := w.store.MarkForecastFailed(ctx, jobID, err.Error()); markErr != nil {
			return fmt.Errorf("mark forecast failed: %w", markErr)
		}
		return nil
	}

	if err := w.store.MarkForecastDone(ctx, jobID, result); err != nil {
		return fmt.Errorf("mark forecast done: %w", err)
	}

	slog.InfoContext(ctx, "Forecast job complete", "job_id", jobID, "owner", owner)
	return nil
}

// ProcessPendingExpenses re-syncs rows whose sync message was lost. This
// is a safety net behind the queue.
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	for _, p := range pending {
		expense, err := w.store.GetExpense(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get pending expense", "id", p.ID, "error", err)
			if markErr := w.store.MarkSyncError(ctx, p.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", markErr)
			}
			continue
		}
		if err := w.syncExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending expense", "id", p.ID, "error", err)
		}
	}
	return nil
}

// RunPendingSyncLoop runs ProcessPendingExpenses on a fixed interval until
// the context is cancelled.
func (w *SyncWorker) RunPendingSyncLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPendingExpenses(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sync pass failed", "error", err)
			}
		}
	}
}

// StartupSyncCheck drains a larger pending backlog once at worker start,
// recovering from downtime or lost messages.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending expenses on startup, processing", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		expense, err := w.store.GetExpense(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get expense for startup sync", "id", p.ID, "error", err)
			failed++
			continue
		}
		if err := w.syncExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense during startup", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}
