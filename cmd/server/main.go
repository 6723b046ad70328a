package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/dyresolve/internal/api"
	"github.com/iconidentify/dyresolve/internal/api/handler"
	"github.com/iconidentify/dyresolve/internal/config"
	"github.com/iconidentify/dyresolve/internal/downloader"
	"github.com/iconidentify/dyresolve/internal/observability"
	"github.com/iconidentify/dyresolve/internal/service"
	"github.com/iconidentify/dyresolve/pkg/ark"
	"github.com/iconidentify/dyresolve/pkg/douyin"
	"github.com/iconidentify/dyresolve/pkg/feishu"
	"github.com/iconidentify/dyresolve/pkg/mailer"
	"github.com/iconidentify/dyresolve/pkg/volc"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dyresolve %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger, logCloser := observability.NewLogger(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting dyresolve",
		"version", Version,
		"build_time", BuildTime,
	)

	// Initialize resolution
	douyinClient := douyin.NewClient(cfg.Resolver, logger)
	resolveSvc := service.NewResolveService(douyinClient, cfg.Resolver.Timeout, logger)

	// Optional collaborators stay nil unless configured
	collab := buildCollaborators(cfg, logger)
	transcriptSvc := service.NewTranscriptService(resolveSvc, collab, service.TranscriptConfig{
		PublicBaseURL:    cfg.Server.BaseURL(),
		APIKey:           cfg.Server.APIKey,
		DefaultRecipient: cfg.Email.To,
	}, logger)

	logger.Info("features configured",
		"transcribe", collab.Transcriber != nil,
		"ai", collab.AI != nil,
		"feishu", collab.Documents != nil,
		"email", collab.Mailer != nil,
		"api_key_auth", cfg.Server.APIKey != "",
	)

	dl := downloader.NewHTTPDownloader(cfg.Download, logger)

	// Initialize handlers
	resolveHandler := handler.NewResolveHandler(resolveSvc, logger)
	transcriptHandler := handler.NewTranscriptHandler(transcriptSvc, logger)
	downloadHandler := handler.NewDownloadHandler(dl, logger)
	healthHandler := handler.NewHealthHandler(transcriptSvc)

	// Setup router
	router := api.NewRouter(resolveHandler, transcriptHandler, downloadHandler, healthHandler, cfg.Server.APIKey)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr, "public_base_url", cfg.Server.BaseURL())
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildCollaborators constructs each optional client whose configuration is
// complete. Disabled features stay nil.
func buildCollaborators(cfg *config.Config, logger *slog.Logger) service.Collaborators {
	var collab service.Collaborators

	if cfg.Transcribe.Enabled() {
		collab.Transcriber = volc.NewClient(volc.Config{
			AppID:        cfg.Transcribe.AppID,
			AccessToken:  cfg.Transcribe.AccessToken,
			BaseURL:      cfg.Transcribe.BaseURL,
			ResourceID:   cfg.Transcribe.ResourceID,
			PollInterval: cfg.Transcribe.PollInterval,
			Timeout:      cfg.Transcribe.Timeout,
		}, logger)
	}
	if cfg.AI.Enabled() {
		collab.AI = ark.NewClient(cfg.AI)
	}
	if cfg.Feishu.Enabled() {
		collab.Documents = feishu.NewClient(cfg.Feishu, logger)
	}
	if cfg.Email.Enabled() {
		collab.Mailer = mailer.New(cfg.Email, logger)
	}

	return collab
}
