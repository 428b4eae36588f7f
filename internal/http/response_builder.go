package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTMXResponse accumulates HX-Trigger events and writes them as a single
// header so the frontend can react to several changes from one request.
type HTMXResponse struct {
	w        http.ResponseWriter
	triggers map[string]any
}

func NewHTMXResponse(w http.ResponseWriter) *HTMXResponse {
	return &HTMXResponse{w: w, triggers: make(map[string]any)}
}

func (b *HTMXResponse) ExpenseCreated() *HTMXResponse {
	b.triggers["expense:created"] = true
	return b
}

func (b *HTMXResponse) ExpenseDeleted() *HTMXResponse {
	b.triggers["expense:deleted"] = true
	return b
}

func (b *HTMXResponse) CategoryChanged() *HTMXResponse {
	b.triggers["category:changed"] = true
	return b
}

func (b *HTMXResponse) IncomeCreated() *HTMXResponse {
	b.triggers["income:created"] = true
	return b
}

func (b *HTMXResponse) ForecastQueued(jobID string) *HTMXResponse {
	b.triggers["forecast:queued"] = map[string]string{"jobId": jobID}
	return b
}

func (b *HTMXResponse) ResetForm() *HTMXResponse {
	b.triggers["form:reset"] = true
	return b
}

func (b *HTMXResponse) Notify(level, message string) *HTMXResponse {
	b.triggers["show-notification"] = map[string]string{
		"level":   level,
		"message": message,
	}
	return b
}

// Write flushes the accumulated triggers and the status code. Headers must
// go out before the body, so call this before rendering.
func (b *HTMXResponse) Write(status int) {
	if len(b.triggers) > 0 {
		payload, err := json.Marshal(b.triggers)
		if err != nil {
			slog.Error("marshal HX-Trigger payload", "error", err)
		} else {
			b.w.Header().Set("HX-Trigger", string(payload))
		}
	}
	b.w.WriteHeader(status)
}

func writeError(w http.ResponseWriter, status int, message string) {
	NewHTMXResponse(w).Notify("error", message).Write(status)
	_, _ = w.Write([]byte(message))
}
