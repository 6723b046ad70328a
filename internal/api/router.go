package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iconidentify/dyresolve/internal/api/handler"
	mw "github.com/iconidentify/dyresolve/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	resolveHandler *handler.ResolveHandler,
	transcriptHandler *handler.TranscriptHandler,
	downloadHandler *handler.DownloadHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(mw.CORS)

	// Health and metrics (no auth)
	r.Get("/health", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		// Transcription and delivery can take minutes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(5 * time.Minute))
			r.Post("/resolve", resolveHandler.Resolve)
			r.Post("/transcript", transcriptHandler.Transcript)
			r.Post("/save_feishu", transcriptHandler.SaveFeishu)
			r.Post("/email", transcriptHandler.Email)
		})

		// Streamed; stalls are caught by the downloader's read timeout
		r.Get("/download", downloadHandler.Download)
	})

	return r
}
