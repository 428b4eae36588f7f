package chat

import (
	"fmt"
	"strings"

	"summa/internal/core"
)

// BuildFinanceSummary renders the user's spending picture as plain text
// for the assistant's system prompt.
func BuildFinanceSummary(overview core.SpendingOverview, incomes []core.Income) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total income: %s.\n", core.FormatUSD(overview.TotalIncome))
	b.WriteString("All individual incomes:\n")
	for _, in := range incomes {
		fmt.Fprintf(&b, "- %s: %s\n", in.Name, core.FormatUSD(in.Amount))
	}
	fmt.Fprintf(&b, "Total expenses: %s.\n", core.FormatUSD(overview.TotalSpend))
	b.WriteString("Spending by category:\n")
	for _, cat := range overview.ByCategory {
		fmt.Fprintf(&b, "- %s: %s\n", cat.Name, core.FormatUSD(cat.Amount))
	}

	return b.String()
}
