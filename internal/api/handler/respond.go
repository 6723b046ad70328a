package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/iconidentify/dyresolve/internal/domain"
	"github.com/iconidentify/dyresolve/internal/service"
)

const maxRequestBody = 1 << 20

// ErrorResponse is the failure envelope shared by every JSON route.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// LinkRequest is the JSON body accepted by the pipeline routes.
type LinkRequest struct {
	URL string `json:"url"`
	To  string `json:"to,omitempty"`
}

// decodeLinkRequest reads the body leniently: a malformed body is treated as
// an empty request so the caller reports the missing url.
func decodeLinkRequest(r *http.Request) LinkRequest {
	var req LinkRequest
	if r.Body != nil {
		json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)
	}
	req.URL = strings.TrimSpace(req.URL)
	req.To = strings.TrimSpace(req.To)
	return req
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// errorMessage maps a pipeline error to the message shown to API callers.
func errorMessage(err error) string {
	var resolveErr *domain.ResolveError
	if errors.As(err, &resolveErr) {
		return resolveErr.Reason()
	}

	var featureErr *service.FeatureError
	if errors.As(err, &featureErr) {
		switch featureErr.Feature {
		case service.FeatureTranscribe:
			return "转写失败: 转写功能未配置"
		case service.FeatureFeishu:
			return "飞书功能未配置"
		case service.FeatureEmail:
			return "邮件功能未配置"
		default:
			return "功能未配置"
		}
	}

	if errors.Is(err, domain.ErrTranscriptionFailed) {
		return "转写失败: " + strings.TrimPrefix(err.Error(), domain.ErrTranscriptionFailed.Error()+": ")
	}
	if errors.Is(err, domain.ErrMissingRecipient) {
		return "请提供收件人邮箱"
	}
	return err.Error()
}
