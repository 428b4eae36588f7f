package http

import (
	"log/slog"
	"net/http"

	"summa/internal/core"
	"summa/internal/storage"
)

type indexView struct {
	Owner        string
	Categories   []storage.CategoryTotals
	Overview     core.SpendingOverview
	ChatEnabled  bool
	ForecastOpen bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
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

	from, to, err := overviewRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	overview, err := s.loadOverview(r, owner, from, to)
	if err != nil {
		slog.ErrorContext(r.Context(), "read spending overview", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "index.html", indexView{
		Owner:        owner,
		Categories:   categories,
		Overview:     overview,
		ChatEnabled:  s.chat != nil,
		ForecastOpen: s.publisher != nil,
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	from, to, err := overviewRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	overview, err := s.loadOverview(r, owner, from, to)
	if err != nil {
		slog.ErrorContext(r.Context(), "read spending overview", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.renderTemplate(w, "overview.html", overview)
}

func (s *Server) loadOverview(r *http.Request, owner string, from, to core.Date) (core.SpendingOverview, error) {
	key := owner + "|" + from.String() + "|" + to.String()
	if cached, ok := s.overviewCache.get(key); ok {
		return cached, nil
	}
	overview, err := s.repo.ReadSpendingOverview(r.Context(), owner, from, to)
	if err != nil {
		return core.SpendingOverview{}, err
	}
	s.overviewCache.set(key, overview)
	return overview, nil
}

func (s *Server) loadCategories(r *http.Request, owner string) ([]storage.CategoryTotals, error) {
	if cached, ok := s.categoryCache.get(owner); ok {
		return cached, nil
	}
	categories, err := s.repo.ListCategories(r.Context(), owner)
	if err != nil {
		return nil, err
	}
	s.categoryCache.set(owner, categories)
	return categories, nil
}
