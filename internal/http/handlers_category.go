package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"summa/internal/core"
	"summa/internal/storage"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListCategories(w, r)
	case http.MethodPost:
		s.handleCreateCategory(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	categories, err := s.loadCategories(r, owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "list categories", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.renderTemplate(w, "category_list.html", categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !parseFormOrFail(w, r) {
		return
	}
	form, err := parseCategoryForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := core.Category{
		Name:         form.Name,
		Icon:         sanitizeInput(r.FormValue("icon")),
		BudgetAmount: form.BudgetAmount,
		CreatedBy:    owner,
	}
	if err := category.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.repo.CreateCategory(r.Context(), category)
	if err != nil {
		slog.ErrorContext(r.Context(), "create category", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.invalidateCaches()

	slog.InfoContext(r.Context(), "category created", "category_id", id, "owner", owner)
	NewHTMXResponse(w).
		CategoryChanged().
		ResetForm().
		Notify("success", "Category created").
		Write(http.StatusCreated)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	form, err := parseCategoryForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := core.Category{
		ID:           id,
		Name:         form.Name,
		Icon:         sanitizeInput(r.FormValue("icon")),
		BudgetAmount: form.BudgetAmount,
		CreatedBy:    owner,
	}
	if err := s.repo.UpdateCategory(r.Context(), category); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		slog.ErrorContext(r.Context(), "update category", "category_id", id, "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.invalidateCaches()

	NewHTMXResponse(w).
		CategoryChanged().
		Notify("success", "Category updated").
		Write(http.StatusOK)
}

// handleDeleteCategory removes a category; the database cascades the delete
// to its expenses.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if err := s.repo.DeleteCategory(r.Context(), id, owner); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		slog.ErrorContext(r.Context(), "delete category", "category_id", id, "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.invalidateCaches()

	NewHTMXResponse(w).
		CategoryChanged().
		Notify("success", "Category deleted").
		Write(http.StatusOK)
}
