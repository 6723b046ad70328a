package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iconidentify/dyresolve/internal/domain"
)

// Resolver turns share text into a video record.
type Resolver interface {
	Resolve(ctx context.Context, input string) (*domain.VideoRecord, error)
}

// ResolveHandler handles link resolution requests.
type ResolveHandler struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(resolver Resolver, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// ResolveResponse is the JSON response for a resolved link.
type ResolveResponse struct {
	Success  bool    `json:"success"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	AwemeID  string  `json:"aweme_id"`
	PlayURL  string  `json:"play_url"`
	Duration float64 `json:"duration"`
}

// Resolve handles POST /api/resolve
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	req := decodeLinkRequest(r)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "请提供 url 参数")
		return
	}

	rec, err := h.resolver.Resolve(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusOK, errorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, ResolveResponse{
		Success:  true,
		Title:    rec.Title,
		Author:   rec.Author,
		AwemeID:  rec.AwemeID.String(),
		PlayURL:  rec.VideoPlayURL,
		Duration: rec.RoundedDuration(),
	})
}
