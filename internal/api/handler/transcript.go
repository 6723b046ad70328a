package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iconidentify/dyresolve/internal/domain"
)

// TranscriptPipeline resolves, transcribes and delivers transcripts.
type TranscriptPipeline interface {
	Transcript(ctx context.Context, input string) (*domain.Transcript, error)
	SaveToFeishu(ctx context.Context, input string) (*domain.SavedDocument, error)
	Email(ctx context.Context, input, to string) error
	DefaultRecipient() string
}

// TranscriptHandler handles the transcription routes.
type TranscriptHandler struct {
	pipeline TranscriptPipeline
	logger   *slog.Logger
}

// NewTranscriptHandler creates a new transcript handler.
func NewTranscriptHandler(pipeline TranscriptPipeline, logger *slog.Logger) *TranscriptHandler {
	return &TranscriptHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// TranscriptResponse is the JSON response for POST /api/transcript.
type TranscriptResponse struct {
	Success  bool    `json:"success"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	Summary  string  `json:"summary"`
	PlayURL  string  `json:"play_url"`
}

// SaveResponse is the JSON response for POST /api/save_feishu.
type SaveResponse struct {
	Success  bool   `json:"success"`
	DocURL   string `json:"doc_url"`
	DocTitle string `json:"doc_title"`
}

// SuccessResponse is the bare success envelope.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Transcript handles POST /api/transcript
func (h *TranscriptHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	req := decodeLinkRequest(r)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "请提供 url 参数")
		return
	}

	t, err := h.pipeline.Transcript(r.Context(), req.URL)
	if err != nil {
		h.fail(w, "transcript", err)
		return
	}

	writeJSON(w, http.StatusOK, TranscriptResponse{
		Success:  true,
		Title:    t.Title,
		Author:   t.Author,
		Duration: t.Duration,
		Text:     t.Text,
		Summary:  t.Summary,
		PlayURL:  t.PlayURL,
	})
}

// SaveFeishu handles POST /api/save_feishu
func (h *TranscriptHandler) SaveFeishu(w http.ResponseWriter, r *http.Request) {
	req := decodeLinkRequest(r)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "请提供 url 参数")
		return
	}

	doc, err := h.pipeline.SaveToFeishu(r.Context(), req.URL)
	if err != nil {
		h.fail(w, "save_feishu", err)
		return
	}

	writeJSON(w, http.StatusOK, SaveResponse{
		Success:  true,
		DocURL:   doc.URL,
		DocTitle: doc.Title,
	})
}

// Email handles POST /api/email
func (h *TranscriptHandler) Email(w http.ResponseWriter, r *http.Request) {
	req := decodeLinkRequest(r)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "请提供 url 参数")
		return
	}
	if req.To == "" && h.pipeline.DefaultRecipient() == "" {
		writeError(w, http.StatusBadRequest, "请提供收件人邮箱")
		return
	}

	if err := h.pipeline.Email(r.Context(), req.URL, req.To); err != nil {
		h.fail(w, "email", err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// fail writes a pipeline failure. These are reported in the envelope with
// HTTP 200 so table integrations can show the message.
func (h *TranscriptHandler) fail(w http.ResponseWriter, route string, err error) {
	h.logger.Warn("pipeline failed", "route", route, "error", err)
	writeError(w, http.StatusOK, errorMessage(err))
}
