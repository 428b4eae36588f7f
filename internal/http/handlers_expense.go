package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"summa/internal/core"
	"summa/internal/services"
	"summa/internal/storage"
)

type expenseListView struct {
	CategoryID int64
	Latest     []core.Expense
	Future     []core.Expense
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListExpenses(w, r)
	case http.MethodPost:
		s.handleCreateExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	categoryID, err := parseIDParam(r, "category_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	partition, err := s.expenses.ListCategoryExpenses(r.Context(), categoryID, owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "list category expenses",
			"category_id", categoryID, "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.renderTemplate(w, "expense_list.html", expenseListView{
		CategoryID: categoryID,
		Latest:     partition.Latest,
		Future:     partition.Future,
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !parseFormOrFail(w, r) {
		return
	}
	form, err := parseExpenseForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.tryBeginCreate(owner) {
		w.Header().Set("Retry-After", "2")
		writeError(w, http.StatusTooManyRequests, "An expense creation is already in progress")
		return
	}
	defer s.endCreate(owner)

	result, err := s.expenses.CreateExpenses(r.Context(), services.CreateExpensesInput{
		Name:       form.Name,
		Amount:     form.Amount,
		CategoryID: form.CategoryID,
		StartDate:  form.Date,
		Pattern:    form.Pattern,
		Owner:      owner,
	})
	if err != nil {
		if result.CreatedCount > 0 {
			slog.ErrorContext(r.Context(), "expense materialization incomplete",
				"owner", owner,
				"created", result.CreatedCount,
				"requested", result.RequestedCount,
				"error", err)
			NewHTMXResponse(w).
				ExpenseCreated().
				Notify("error", "Some expenses could not be created").
				Write(http.StatusInternalServerError)
			return
		}
		slog.ErrorContext(r.Context(), "create expenses", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "Could not create expense")
		return
	}

	slog.InfoContext(r.Context(), "expenses created",
		"owner", owner,
		"category_id", form.CategoryID,
		"count", result.CreatedCount,
		"pattern", string(form.Pattern))
	NewHTMXResponse(w).
		ExpenseCreated().
		ResetForm().
		Notify("success", result.Message).
		Write(http.StatusCreated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !parseFormOrFail(w, r) {
		return
	}

	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	if err := s.expenses.DeleteExpense(r.Context(), id, owner); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "delete expense", "expense_id", id, "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	NewHTMXResponse(w).
		ExpenseDeleted().
		Notify("success", "Expense deleted").
		Write(http.StatusOK)
}
