package http

import (
	"log/slog"
	"net/http"

	"summa/internal/chat"
)

const chatSummaryMonths = 6

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if s.chat == nil {
		http.Error(w, "Chat is not configured", http.StatusServiceUnavailable)
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
	message := sanitizeInput(r.FormValue("message"))
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	from, to := trailingMonths(chatSummaryMonths)
	overview, err := s.loadOverview(r, owner, from, to)
	if err != nil {
		slog.ErrorContext(r.Context(), "read spending overview", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	incomes, err := s.repo.ListIncome(r.Context(), owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "list income", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	reply, err := s.chat.Ask(r.Context(), chat.BuildFinanceSummary(overview, incomes), message)
	if err != nil {
		slog.ErrorContext(r.Context(), "chat completion", "owner", owner, "error", err)
		writeError(w, http.StatusBadGateway, "The assistant is unavailable right now")
		return
	}

	s.renderTemplate(w, "chat_reply.html", struct {
		Question string
		Reply    string
	}{Question: message, Reply: reply})
}
