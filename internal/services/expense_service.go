package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"summa/internal/amqp"
	"summa/internal/core"
)

// insertTimeout bounds each single row insert during materialization.
const insertTimeout = 5 * time.Second

// maxConcurrentInserts bounds the materialization fan-out.
const maxConcurrentInserts = 8

// ExpenseStore is the persistence surface the service needs.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	DeleteExpense(ctx context.Context, id int64, owner string) error
	ListExpensesByCategory(ctx context.Context, categoryID int64, owner string) ([]core.Expense, error)
	GetCategory(ctx context.Context, id int64, owner string) (core.Category, error)
}

// Publisher sends work-queue messages. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.Message) error
}

// CreateExpensesInput describes one expense template plus its recurrence.
type CreateExpensesInput struct {
	Name       string
	Amount     decimal.Decimal
	CategoryID int64
	StartDate  core.Date
	Pattern    core.RecurrencePattern
	Owner      string
}

// CreateExpensesResult reports how materialization went. CreatedCount can
// be lower than RequestedCount: successful inserts are kept even when
// siblings fail.
type CreateExpensesResult struct {
	RequestedCount int
	CreatedCount   int
	// Message is the user-facing success notification, empty unless every
	// occurrence persisted.
	Message string
}

// ExpenseService materializes recurring expenses into concrete rows and
// keeps the work queue informed about rows that need backup or cleanup.
type ExpenseService struct {
	store     ExpenseStore
	publisher Publisher
	// refresh runs after every materialization attempt, also partial ones,
	// so cached views never show stale data next to the new rows.
	refresh func()
}

func NewExpenseService(store ExpenseStore, publisher Publisher, refresh func()) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		refresh:   refresh,
	}
}

// CreateExpenses expands the input's recurrence into dated occurrences and
// inserts them concurrently. There is no rollback: rows that made it in
// stay in, and the returned error aggregates the inserts that did not.
func (s *ExpenseService) CreateExpenses(ctx context.Context, in CreateExpensesInput) (CreateExpensesResult, error) {
	template := core.Expense{
		Name:       in.Name,
		Amount:     in.Amount,
		CategoryID: in.CategoryID,
		CreatedAt:  in.StartDate,
		CreatedBy:  in.Owner,
	}
	if err := template.Validate(); err != nil {
		return CreateExpensesResult{}, err
	}
	if _, err := s.store.GetCategory(ctx, in.CategoryID, in.Owner); err != nil {
		return CreateExpensesResult{}, fmt.Errorf("%w: category %d", core.ErrMissingCategory, in.CategoryID)
	}

	dates, err := core.Schedule(in.StartDate, in.Pattern)
	if err != nil {
		return CreateExpensesResult{}, err
	}

	result := CreateExpensesResult{RequestedCount: len(dates)}

	var (
		mu         sync.Mutex
		createdIDs []int64
		failures   []error
	)

	var g errgroup.Group
	g.SetLimit(maxConcurrentInserts)
	for _, date := range dates {
		expense := template
		expense.CreatedAt = date
		g.Go(func() error {
			insertCtx, cancel := context.WithTimeout(ctx, insertTimeout)
			defer cancel()

			id, err := s.store.CreateExpense(insertCtx, expense)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Errorf("occurrence %s: %w", expense.CreatedAt, err))
				return nil
			}
			createdIDs = append(createdIDs, id)
			return nil
		})
	}
	g.Wait()

	result.CreatedCount = len(createdIDs)

	for _, id := range createdIDs {
		if err := s.publishSync(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
			// The row is saved; backup sync can be retried later.
		}
	}

	if s.refresh != nil {
		s.refresh()
	}

	if len(failures) > 0 {
		slog.ErrorContext(ctx, "Expense materialization incomplete",
			"requested", result.RequestedCount,
			"created", result.CreatedCount,
			"failed", len(failures),
			"owner", in.Owner)
		return result, fmt.Errorf("create expenses: %w", errors.Join(failures...))
	}

	if in.Pattern == core.RecurrenceNone {
		result.Message = "Created expense"
	} else {
		result.Message = fmt.Sprintf("Created %d %s expenses over the next 2 years",
			result.CreatedCount, in.Pattern)
	}

	slog.InfoContext(ctx, "Expenses created",
		"count", result.CreatedCount,
		"pattern", in.Pattern,
		"category_id", in.CategoryID,
		"owner", in.Owner)

	return result, nil
}

// ListCategoryExpenses fetches one category's expenses and splits them
// around today. Rows with an unreadable date are reported and left out.
func (s *ExpenseService) ListCategoryExpenses(ctx context.Context, categoryID int64, owner string) (core.PartitionResult, error) {
	expenses, err := s.store.ListExpensesByCategory(ctx, categoryID, owner)
	if err != nil {
		return core.PartitionResult{}, fmt.Errorf("list expenses: %w", err)
	}

	parts := core.Partition(expenses, core.Today())
	for _, e := range parts.Malformed {
		slog.WarnContext(ctx, "Excluding expense with unreadable date",
			"id", e.ID, "name", e.Name, "category_id", categoryID)
	}
	return parts, nil
}

// DeleteExpense removes a single occurrence. Siblings of the same
// recurring series are not touched.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64, owner string) error {
	if err := s.store.DeleteExpense(ctx, id, owner); err != nil {
		return err
	}

	if err := s.publishDelete(ctx, id, owner); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
		// The local delete stands either way.
	}

	if s.refresh != nil {
		s.refresh()
	}
	return nil
}

func (s *ExpenseService) publishSync(ctx context.Context, id int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping sync message")
		return nil
	}
	return s.publisher.Publish(ctx, amqp.NewExpenseSyncMessage(id))
}

func (s *ExpenseService) publishDelete(ctx context.Context, id int64, owner string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping delete message")
		return nil
	}
	return s.publisher.Publish(ctx, amqp.NewExpenseDeleteMessage(id, owner))
}
