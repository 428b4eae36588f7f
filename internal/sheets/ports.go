package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"summa/internal/core"
)

// BackupRow is one expense as it appears in the backup spreadsheet.
type BackupRow struct {
	ExpenseID int64
	Date      core.Date
	Name      string
	Amount    decimal.Decimal
	Category  string
	Owner     string
}

// Ports for outbound adapters.
type (
	ExpenseWriter interface {
		Append(ctx context.Context, row BackupRow) (rowRef string, err error)
	}

	ExpenseDeleter interface {
		// DeleteExpense removes the backup row carrying this expense id.
		DeleteExpense(ctx context.Context, expenseID int64) error
	}
)
