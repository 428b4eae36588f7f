package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"summa/internal/core"

	_ "modernc.org/sqlite"
)

// Sync states for the optional spreadsheet backup of expense rows.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// Forecast job states.
const (
	ForecastPending = "pending"
	ForecastDone    = "done"
	ForecastFailed  = "failed"
)

var ErrNotFound = errors.New("not found")

// CategoryTotals is a category plus its aggregate spend, as shown on the
// category list cards.
type CategoryTotals struct {
	core.Category
	TotalSpend decimal.Decimal
	TotalItems int64
}

// PendingSyncExpense is the minimal row needed to enqueue a backup sync.
type PendingSyncExpense struct {
	ID        int64
	CreatedBy string
}

// ForecastJob tracks one spending-forecast request through the worker.
type ForecastJob struct {
	ID        string
	Owner     string
	Status    string
	Result    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// sortableDate rearranges a MM-DD-YYYY column into YYYYMMDD so SQL string
// comparison matches calendar order.
const sortableDate = "substr(%s,7,4)||substr(%s,1,2)||substr(%s,4,2)"

func dateExpr(col string) string {
	return fmt.Sprintf(sortableDate, col, col, col)
}

func sortableKey(d core.Date) string {
	return d.Format("20060102")
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	var budget sql.NullString
	if c.BudgetAmount.Valid {
		budget = sql.NullString{String: c.BudgetAmount.Decimal.String(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, icon, budget_amount, created_by) VALUES (?, ?, ?, ?)`,
		c.Name, c.Icon, budget, c.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category id: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "id", id, "name", c.Name, "owner", c.CreatedBy)
	return id, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64, owner string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, icon, budget_amount, created_by FROM categories WHERE id = ? AND created_by = ?`,
		id, owner)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	var budget sql.NullString
	if c.BudgetAmount.Valid {
		budget = sql.NullString{String: c.BudgetAmount.Decimal.String(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ?, budget_amount = ? WHERE id = ? AND created_by = ?`,
		c.Name, c.Icon, budget, c.ID, c.CreatedBy)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// DeleteCategory removes a category; its expenses go with it via the
// foreign-key cascade.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64, owner string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND created_by = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id, "owner", owner)
	return nil
}

// ListCategories returns the owner's categories newest first, each with
// its total spend and item count. Amount totals are folded in Go with
// decimal arithmetic rather than SQL float SUM.
func (r *SQLiteRepository) ListCategories(ctx context.Context, owner string) ([]CategoryTotals, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, icon, budget_amount, created_by FROM categories WHERE created_by = ? ORDER BY id DESC`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var result []CategoryTotals
	index := make(map[int64]int)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		index[c.ID] = len(result)
		result = append(result, CategoryTotals{Category: c, TotalSpend: decimal.Zero})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	erows, err := r.db.QueryContext(ctx,
		`SELECT category_id, amount FROM expenses WHERE created_by = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("list expense amounts: %w", err)
	}
	defer erows.Close()

	for erows.Next() {
		var categoryID int64
		var amountStr string
		if err := erows.Scan(&categoryID, &amountStr); err != nil {
			return nil, fmt.Errorf("scan expense amount: %w", err)
		}
		i, ok := index[categoryID]
		if !ok {
			continue
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed expense amount", "category_id", categoryID, "amount", amountStr)
			continue
		}
		result[i].TotalSpend = result[i].TotalSpend.Add(amount)
		result[i].TotalItems++
	}
	if err := erows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense amounts: %w", err)
	}

	return result, nil
}

// --- expenses ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (name, amount, category_id, created_at, created_by) VALUES (?, ?, ?, ?, ?)`,
		e.Name, e.Amount.String(), e.CategoryID, e.CreatedAt.String(), e.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, amount, category_id, created_at, created_by FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListExpensesByCategory returns every expense of one category, in fetch
// (insertion) order. Rows with an unparseable date come back with a zero
// CreatedAt so the classifier can report them instead of dropping them
// silently here.
func (r *SQLiteRepository) ListExpensesByCategory(ctx context.Context, categoryID int64, owner string) ([]core.Expense, error) {
	return r.listExpenses(ctx,
		`SELECT id, name, amount, category_id, created_at, created_by
		 FROM expenses WHERE category_id = ? AND created_by = ? ORDER BY id`,
		categoryID, owner)
}

// ListExpensesByOwner returns all of an owner's expenses across categories.
func (r *SQLiteRepository) ListExpensesByOwner(ctx context.Context, owner string) ([]core.Expense, error) {
	return r.listExpenses(ctx,
		`SELECT id, name, amount, category_id, created_at, created_by
		 FROM expenses WHERE created_by = ? ORDER BY id`,
		owner)
}

// ListExpensesInRange returns the owner's expenses whose occurrence date
// falls inside [from, to], both inclusive.
func (r *SQLiteRepository) ListExpensesInRange(ctx context.Context, owner string, from, to core.Date) ([]core.Expense, error) {
	q := fmt.Sprintf(
		`SELECT id, name, amount, category_id, created_at, created_by
		 FROM expenses WHERE created_by = ? AND %s >= ? AND %s <= ? ORDER BY id`,
		dateExpr("created_at"), dateExpr("created_at"))
	return r.listExpenses(ctx, q, owner, sortableKey(from), sortableKey(to))
}

func (r *SQLiteRepository) listExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var result []core.Expense
	for rows.Next() {
		e, err := scanExpense(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64, owner string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND created_by = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "owner", owner)
	return nil
}

// --- spreadsheet backup sync state ---

func (r *SQLiteRepository) GetPendingSyncExpenses(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_by FROM expenses WHERE sync_status = ? ORDER BY id LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var result []PendingSyncExpense
	for rows.Next() {
		var p PendingSyncExpense
		if err := rows.Scan(&p.ID, &p.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan pending sync expense: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ? WHERE id = ?`, SyncDone, id); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ? WHERE id = ?`, SyncError, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

// --- income ---

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income (name, amount, transaction_date, created_by) VALUES (?, ?, ?, ?)`,
		in.Name, in.Amount.String(), in.TransactionDate.String(), in.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListIncome(ctx context.Context, owner string) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount, transaction_date, created_by FROM income WHERE created_by = ? ORDER BY id DESC`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()

	var result []core.Income
	for rows.Next() {
		var (
			in        core.Income
			amountStr string
			dateStr   string
		)
		if err := rows.Scan(&in.ID, &in.Name, &amountStr, &dateStr, &in.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping income with malformed amount", "id", in.ID, "amount", amountStr)
			continue
		}
		if d, err := core.ParseDate(dateStr); err == nil {
			in.TransactionDate = d
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

// --- aggregates ---

// ReadSpendingOverview computes totals and per-category spend for a date
// range. Category names are resolved in the same pass so the dashboard
// and the chat summary share one query path.
func (r *SQLiteRepository) ReadSpendingOverview(ctx context.Context, owner string, from, to core.Date) (core.SpendingOverview, error) {
	overview := core.SpendingOverview{
		From:        from,
		To:          to,
		TotalSpend:  decimal.Zero,
		TotalIncome: decimal.Zero,
	}

	q := fmt.Sprintf(
		`SELECT e.amount, c.name
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.created_by = ? AND %s >= ? AND %s <= ?`,
		dateExpr("e.created_at"), dateExpr("e.created_at"))
	rows, err := r.db.QueryContext(ctx, q, owner, sortableKey(from), sortableKey(to))
	if err != nil {
		return overview, fmt.Errorf("query spending: %w", err)
	}
	defer rows.Close()

	byCategory := make(map[string]decimal.Decimal)
	var order []string
	for rows.Next() {
		var amountStr, categoryName string
		if err := rows.Scan(&amountStr, &categoryName); err != nil {
			return overview, fmt.Errorf("scan spending row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed expense amount", "amount", amountStr, "category", categoryName)
			continue
		}
		if _, ok := byCategory[categoryName]; !ok {
			order = append(order, categoryName)
		}
		byCategory[categoryName] = byCategory[categoryName].Add(amount)
		overview.TotalSpend = overview.TotalSpend.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return overview, fmt.Errorf("iterate spending rows: %w", err)
	}

	for _, name := range order {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{Name: name, Amount: byCategory[name]})
	}

	incomes, err := r.ListIncome(ctx, owner)
	if err != nil {
		return overview, err
	}
	for _, in := range incomes {
		overview.TotalIncome = overview.TotalIncome.Add(in.Amount)
	}

	return overview, nil
}

// --- forecast jobs ---

func (r *SQLiteRepository) CreateForecastJob(ctx context.Context, id, owner string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO forecast_jobs (id, owner, status) VALUES (?, ?, ?)`,
		id, owner, ForecastPending); err != nil {
		return fmt.Errorf("insert forecast job: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetForecastJob(ctx context.Context, id, owner string) (ForecastJob, error) {
	var job ForecastJob
	var result, errMsg sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner, status, result, error, created_at, updated_at
		 FROM forecast_jobs WHERE id = ? AND owner = ?`, id, owner).
		Scan(&job.ID, &job.Owner, &job.Status, &result, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ForecastJob{}, fmt.Errorf("forecast job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ForecastJob{}, fmt.Errorf("get forecast job: %w", err)
	}
	job.Result = result.String
	job.Error = errMsg.String
	return job, nil
}

func (r *SQLiteRepository) MarkForecastDone(ctx context.Context, id, resultJSON string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE forecast_jobs SET status = ?, result = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		ForecastDone, resultJSON, id); err != nil {
		return fmt.Errorf("mark forecast done: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkForecastFailed(ctx context.Context, id, reason string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE forecast_jobs SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		ForecastFailed, reason, id); err != nil {
		return fmt.Errorf("mark forecast failed: %w", err)
	}
	return nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c      core.Category
		budget sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Icon, &budget, &c.CreatedBy); err != nil {
		return core.Category{}, err
	}
	if budget.Valid {
		d, err := decimal.NewFromString(budget.String)
		if err == nil {
			c.BudgetAmount = decimal.NewNullDecimal(d)
		}
	}
	return c, nil
}

func scanExpense(ctx context.Context, row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		amountStr string
		dateStr   string
	)
	if err := row.Scan(&e.ID, &e.Name, &amountStr, &e.CategoryID, &dateStr, &e.CreatedBy); err != nil {
		return core.Expense{}, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("malformed amount %q: %w", amountStr, err)
	}
	e.Amount = amount

	d, err := core.ParseDate(dateStr)
	if err != nil {
		// Data-integrity fault: surface the row with a zero date so the
		// classifier can exclude and report it.
		slog.WarnContext(ctx, "Expense has malformed created_at", "id", e.ID, "created_at", dateStr)
		return e, nil
	}
	e.CreatedAt = d
	return e, nil
}
