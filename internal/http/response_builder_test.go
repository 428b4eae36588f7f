package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeTriggers(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	header := rec.Header().Get("HX-Trigger")
	if header == "" {
		t.Fatal("expected HX-Trigger header")
	}
	var triggers map[string]any
	if err := json.Unmarshal([]byte(header), &triggers); err != nil {
		t.Fatalf("invalid HX-Trigger payload: %v", err)
	}
	return triggers
}

func TestHTMXResponseAccumulatesTriggers(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse(rec).
		ExpenseCreated().
		ResetForm().
		Notify("success", "Created expense").
		Write(http.StatusCreated)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	triggers := decodeTriggers(t, rec)
	if triggers["expense:created"] != true {
		t.Fatal("expected expense:created trigger")
	}
	if triggers["form:reset"] != true {
		t.Fatal("expected form:reset trigger")
	}
	note, ok := triggers["show-notification"].(map[string]any)
	if !ok {
		t.Fatal("expected show-notification payload")
	}
	if note["level"] != "success" || note["message"] != "Created expense" {
		t.Fatalf("unexpected notification payload: %v", note)
	}
}

func TestHTMXResponseForecastQueuedCarriesJobID(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse(rec).ForecastQueued("job-123").Write(http.StatusAccepted)

	triggers := decodeTriggers(t, rec)
	payload, ok := triggers["forecast:queued"].(map[string]any)
	if !ok {
		t.Fatal("expected forecast:queued payload")
	}
	if payload["jobId"] != "job-123" {
		t.Fatalf("expected job-123, got %v", payload["jobId"])
	}
}

func TestHTMXResponseNoTriggersNoHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse(rec).Write(http.StatusOK)
	if rec.Header().Get("HX-Trigger") != "" {
		t.Fatal("expected no HX-Trigger header")
	}
}
