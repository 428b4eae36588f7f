package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"summa/internal/core"
)

const testOwner = "user@example.com"

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "summa.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createTestCategory(t *testing.T, repo *SQLiteRepository, name string) int64 {
	t.Helper()
	id, err := repo.CreateCategory(context.Background(), core.Category{
		Name:      name,
		Icon:      "💰",
		CreatedBy: testOwner,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return id
}

func TestMigrationsApplyOnceAndReopenCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summa.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	catID := createTestCategory(t, repo, "Seeded")
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Second open replays the migration path against an up-to-date schema
	// and must keep existing data.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if _, err := repo.GetCategory(context.Background(), catID, testOwner); err != nil {
		t.Fatalf("category should survive reopen: %v", err)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateCategory(ctx, core.Category{
		Name:         "Groceries",
		Icon:         "🛒",
		BudgetAmount: decimal.NewNullDecimal(decimal.NewFromInt(400)),
		CreatedBy:    testOwner,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetCategory(ctx, id, testOwner)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Groceries" || !got.BudgetAmount.Valid || !got.BudgetAmount.Decimal.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("unexpected category: %+v", got)
	}

	// Owned by someone else: not visible.
	if _, err := repo.GetCategory(ctx, id, "other@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}

	got.Name = "Food"
	if err := repo.UpdateCategory(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := repo.DeleteCategory(ctx, id, testOwner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetCategory(ctx, id, testOwner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestExpenseCreateListDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	catID := createTestCategory(t, repo, "Rent")

	id, err := repo.CreateExpense(ctx, core.Expense{
		Name:       "June rent",
		Amount:     decimal.NewFromInt(1200),
		CategoryID: catID,
		CreatedAt:  core.NewDate(2025, 6, 1),
		CreatedBy:  testOwner,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	list, err := repo.ListExpensesByCategory(ctx, catID, testOwner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != id || list[0].CreatedAt.String() != "06-01-2025" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if !list[0].Amount.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("amount round trip failed: %s", list[0].Amount)
	}

	if err := repo.DeleteExpense(ctx, id, testOwner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteExpense(ctx, id, testOwner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestDeleteOneOccurrenceKeepsSiblings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	catID := createTestCategory(t, repo, "Subscriptions")

	// Three sibling occurrences of one recurring series.
	var ids []int64
	for _, d := range []core.Date{
		core.NewDate(2025, 6, 1), core.NewDate(2025, 7, 1), core.NewDate(2025, 8, 1),
	} {
		id, err := repo.CreateExpense(ctx, core.Expense{
			Name: "Streaming", Amount: decimal.NewFromInt(15),
			CategoryID: catID, CreatedAt: d, CreatedBy: testOwner,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, id)
	}

	if err := repo.DeleteExpense(ctx, ids[1], testOwner); err != nil {
		t.Fatalf("delete middle occurrence: %v", err)
	}

	list, err := repo.ListExpensesByCategory(ctx, catID, testOwner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected siblings untouched, got %d rows", len(list))
	}
}

func TestCategoryCascadeDeletesExpenses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	catID := createTestCategory(t, repo, "Travel")

	if _, err := repo.CreateExpense(ctx, core.Expense{
		Name: "Flight", Amount: decimal.NewFromInt(300),
		CategoryID: catID, CreatedAt: core.NewDate(2025, 5, 20), CreatedBy: testOwner,
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if err := repo.DeleteCategory(ctx, catID, testOwner); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	list, err := repo.ListExpensesByOwner(ctx, testOwner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected cascade delete, got %d rows", len(list))
	}
}

func TestListExpensesInRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	catID := createTestCategory(t, repo, "Misc")

	dates := []core.Date{
		core.NewDate(2024, 12, 31),
		core.NewDate(2025, 1, 1),
		core.NewDate(2025, 1, 31),
		core.NewDate(2025, 2, 1),
	}
	for _, d := range dates {
		if _, err := repo.CreateExpense(ctx, core.Expense{
			Name: "x", Amount: decimal.NewFromInt(1),
			CategoryID: catID, CreatedAt: d, CreatedBy: testOwner,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	// January only; the MM-DD-YYYY column must compare in calendar order,
	// not lexical order.
	list, err := repo.ListExpensesInRange(ctx, testOwner, core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows in January, got %d", len(list))
	}
	for _, e := range list {
		if e.CreatedAt.Month() != 1 {
			t.Fatalf("row outside range: %s", e.CreatedAt)
		}
	}
}

func TestReadSpendingOverview(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	groceries := createTestCategory(t, repo, "Groceries")
	rent := createTestCategory(t, repo, "Rent")

	seed := []struct {
		cat    int64
		amount string
		date   core.Date
	}{
		{groceries, "50.25", core.NewDate(2025, 6, 2)},
		{groceries, "19.75", core.NewDate(2025, 6, 10)},
		{rent, "1200", core.NewDate(2025, 6, 1)},
		{rent, "1200", core.NewDate(2025, 7, 1)}, // outside range
	}
	for _, s := range seed {
		amount, _ := decimal.NewFromString(s.amount)
		if _, err := repo.CreateExpense(ctx, core.Expense{
			Name: "x", Amount: amount, CategoryID: s.cat, CreatedAt: s.date, CreatedBy: testOwner,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := repo.CreateIncome(ctx, core.Income{
		Name: "Salary", Amount: decimal.NewFromInt(3000),
		TransactionDate: core.NewDate(2025, 6, 1), CreatedBy: testOwner,
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}

	ov, err := repo.ReadSpendingOverview(ctx, testOwner, core.NewDate(2025, 6, 1), core.NewDate(2025, 6, 30))
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if !ov.TotalSpend.Equal(decimal.NewFromFloat(1270.00)) {
		t.Fatalf("total spend: expected 1270, got %s", ov.TotalSpend)
	}
	if !ov.TotalIncome.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("total income: expected 3000, got %s", ov.TotalIncome)
	}
	if len(ov.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(ov.ByCategory))
	}
}

func TestPendingSyncFlow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	catID := createTestCategory(t, repo, "Misc")

	id, err := repo.CreateExpense(ctx, core.Expense{
		Name: "x", Amount: decimal.NewFromInt(1),
		CategoryID: catID, CreatedAt: core.NewDate(2025, 6, 1), CreatedBy: testOwner,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("unexpected pending rows: %+v", pending)
	}

	if err := repo.MarkSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending after sync: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}
}

func TestForecastJobLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateForecastJob(ctx, "job-1", testOwner); err != nil {
		t.Fatalf("create job: %v", err)
	}

	job, err := repo.GetForecastJob(ctx, "job-1", testOwner)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != ForecastPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}

	if err := repo.MarkForecastDone(ctx, "job-1", `[[100,90,110,"2025-07-31"]]`); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	job, err = repo.GetForecastJob(ctx, "job-1", testOwner)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != ForecastDone || job.Result == "" {
		t.Fatalf("unexpected job after done: %+v", job)
	}

	if err := repo.CreateForecastJob(ctx, "job-2", testOwner); err != nil {
		t.Fatalf("create job 2: %v", err)
	}
	if err := repo.MarkForecastFailed(ctx, "job-2", "not enough months"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	job, err = repo.GetForecastJob(ctx, "job-2", testOwner)
	if err != nil {
		t.Fatalf("get job 2: %v", err)
	}
	if job.Status != ForecastFailed || job.Error != "not enough months" {
		t.Fatalf("unexpected job after failure: %+v", job)
	}

	if _, err := repo.GetForecastJob(ctx, "job-1", "other@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestMalformedDateSurfacesZeroDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	catID := createTestCategory(t, repo, "Misc")

	// Bypass the typed API to simulate a legacy corrupted row.
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO expenses (name, amount, category_id, created_at, created_by) VALUES ('bad', '5', ?, 'not-a-date', ?)`,
		catID, testOwner); err != nil {
		t.Fatalf("raw insert: %v", err)
	}

	list, err := repo.ListExpensesByCategory(ctx, catID, testOwner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || !list[0].CreatedAt.IsZero() {
		t.Fatalf("expected zero date for malformed row, got %+v", list)
	}
}
