package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/iconidentify/dyresolve/internal/downloader"
)

const maxFilenameRunes = 60

// DownloadHandler proxies media downloads past the platform's referer check.
type DownloadHandler struct {
	downloader downloader.Downloader
	logger     *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(dl downloader.Downloader, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloader: dl,
		logger:     logger,
	}
}

// Download handles GET /api/download?url=&title=
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	mediaURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if mediaURL == "" {
		writeError(w, http.StatusBadRequest, "缺少 url 参数")
		return
	}
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		title = "video"
	}

	media, err := h.downloader.Download(r.Context(), mediaURL)
	if err != nil {
		h.logger.Error("download failed", "url", mediaURL, "error", err)
		var statusErr *downloader.StatusError
		if errors.As(err, &statusErr) {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("上游返回 %d", statusErr.StatusCode))
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer media.Body.Close()

	encoded := url.PathEscape(sanitizeFilename(title))
	w.Header().Set("Content-Type", media.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s.mp4"; filename*=UTF-8''%s.mp4`, encoded, encoded))
	if media.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(media.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, media.Body)
	if err != nil {
		// Headers are already sent; the client sees a truncated body.
		h.logger.Warn("download stream interrupted", "url", mediaURL, "bytes", n, "error", err)
		return
	}
	h.logger.Debug("download streamed", "bytes", n)
}

// sanitizeFilename keeps letters, digits, '_' and '-', replaces everything
// else with '_' and caps the result at maxFilenameRunes.
func sanitizeFilename(title string) string {
	var b strings.Builder
	count := 0
	for _, r := range title {
		if count == maxFilenameRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
		count++
	}
	return b.String()
}
