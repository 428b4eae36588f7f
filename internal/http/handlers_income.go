package http

import (
	"log/slog"
	"net/http"

	"summa/internal/core"
)

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListIncome(w, r)
	case http.MethodPost:
		s.handleCreateIncome(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	incomes, err := s.repo.ListIncome(r.Context(), owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "list income", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.renderTemplate(w, "income_list.html", incomes)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !parseFormOrFail(w, r) {
		return
	}
	form, err := parseIncomeForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	income := core.Income{
		Name:            form.Name,
		Amount:          form.Amount,
		TransactionDate: form.TransactionDate,
		CreatedBy:       owner,
	}
	if err := income.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.repo.CreateIncome(r.Context(), income)
	if err != nil {
		slog.ErrorContext(r.Context(), "create income", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.overviewCache.invalidateAll()

	slog.InfoContext(r.Context(), "income created", "income_id", id, "owner", owner)
	NewHTMXResponse(w).
		IncomeCreated().
		ResetForm().
		Notify("success", "Income recorded").
		Write(http.StatusCreated)
}
