package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"summa/internal/amqp"
	"summa/internal/forecast"
	"summa/internal/storage"
)

type forecastStatusResponse struct {
	ID          string                `json:"id"`
	Status      string                `json:"status"`
	Error       string                `json:"error,omitempty"`
	Predictions []forecast.Prediction `json:"predictions,omitempty"`
}

// handleForecastRequest queues a forecast job for the worker and returns
// immediately; clients poll /forecast/status for the result.
func (s *Server) handleForecastRequest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if s.publisher == nil {
		http.Error(w, "Forecasting is not configured", http.StatusServiceUnavailable)
		return
	}
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobID := uuid.NewString()
	if err := s.repo.CreateForecastJob(r.Context(), jobID, owner); err != nil {
		slog.ErrorContext(r.Context(), "create forecast job", "owner", owner, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := s.publisher.Publish(r.Context(), amqp.NewForecastRequestMessage(jobID, owner)); err != nil {
		slog.ErrorContext(r.Context(), "publish forecast request",
			"job_id", jobID, "owner", owner, "error", err)
		if markErr := s.repo.MarkForecastFailed(r.Context(), jobID, "could not queue job"); markErr != nil {
			slog.ErrorContext(r.Context(), "mark forecast failed", "job_id", jobID, "error", markErr)
		}
		http.Error(w, "Could not queue forecast", http.StatusServiceUnavailable)
		return
	}

	slog.InfoContext(r.Context(), "forecast queued", "job_id", jobID, "owner", owner)
	w.Header().Set("Content-Type", "application/json")
	NewHTMXResponse(w).ForecastQueued(jobID).Write(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(forecastStatusResponse{ID: jobID, Status: storage.ForecastPending}); err != nil {
		slog.Error("encode json response", "error", err)
	}
}

func (s *Server) handleForecastStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	owner, ok := s.resolveOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := s.repo.GetForecastJob(r.Context(), jobID, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "forecast job not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "get forecast job", "job_id", jobID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := forecastStatusResponse{ID: job.ID, Status: job.Status, Error: job.Error}
	if job.Status == storage.ForecastDone {
		predictions, err := forecast.ParsePredictions(job.Result)
		if err != nil {
			slog.ErrorContext(r.Context(), "parse forecast result", "job_id", jobID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		resp.Predictions = predictions
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json response", "error", err)
	}
}
