package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iconidentify/dyresolve/internal/service"
)

func TestHealthHandler_Live(t *testing.T) {
	handler := NewHealthHandler(mockFeatures{
		service.FeatureTranscribe: true,
		service.FeatureAI:         true,
		service.FeatureFeishu:     false,
		service.FeatureEmail:      true,
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.Live(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if !resp.Transcribe || !resp.AI || resp.Feishu || !resp.Email {
		t.Errorf("features = %+v", resp)
	}
}

func TestHealthHandler_NoFeatures(t *testing.T) {
	handler := NewHealthHandler(nil)

	w := httptest.NewRecorder()
	handler.Live(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Transcribe || resp.AI || resp.Feishu || resp.Email {
		t.Errorf("resp = %+v", resp)
	}
}
