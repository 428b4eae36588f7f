package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"summa/internal/core"
)

// renderTemplate executes into a buffer first, so a template error never
// leaks a half-written page to the client.
func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// overviewRange resolves the from/to query parameters, defaulting to the
// current calendar month so far.
func overviewRange(r *http.Request) (core.Date, core.Date, error) {
	today := core.Today()
	from := core.NewDate(today.Year(), int(today.Month()), 1)
	to := today

	if raw := r.URL.Query().Get("from"); raw != "" {
		d, err := parseDateField(raw)
		if err != nil {
			return core.Date{}, core.Date{}, err
		}
		from = d
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		d, err := parseDateField(raw)
		if err != nil {
			return core.Date{}, core.Date{}, err
		}
		to = d
	}
	return from, to, nil
}

// trailingMonths returns the range covering the past n calendar months up
// to today, used for the chat finance summary.
func trailingMonths(n int) (core.Date, core.Date) {
	today := core.Today()
	start := today.AddDate(0, -n, 0)
	return core.DateOf(time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)), today
}
