package handler

import (
	"net/http"
	"time"

	"github.com/iconidentify/dyresolve/internal/service"
)

var startTime = time.Now()

// FeatureSet reports which optional collaborators are configured.
type FeatureSet interface {
	Features() map[string]bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	features FeatureSet
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(features FeatureSet) *HealthHandler {
	return &HealthHandler{
		features: features,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status        string `json:"status"`
	Transcribe    bool   `json:"transcribe"`
	AI            bool   `json:"ai"`
	Feishu        bool   `json:"feishu"`
	Email         bool   `json:"email"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Live handles GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}
	if h.features != nil {
		f := h.features.Features()
		resp.Transcribe = f[service.FeatureTranscribe]
		resp.AI = f[service.FeatureAI]
		resp.Feishu = f[service.FeatureFeishu]
		resp.Email = f[service.FeatureEmail]
	}
	writeJSON(w, http.StatusOK, resp)
}
