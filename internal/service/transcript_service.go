package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/iconidentify/dyresolve/internal/domain"
	"github.com/iconidentify/dyresolve/internal/observability"
	"github.com/iconidentify/dyresolve/pkg/ark"
	"github.com/iconidentify/dyresolve/pkg/feishu"
	"github.com/iconidentify/dyresolve/pkg/mailer"
	"github.com/iconidentify/dyresolve/pkg/volc"
)

// Collaborator names used in errors, logs and metrics.
const (
	FeatureTranscribe = "transcribe"
	FeatureAI         = "ai"
	FeatureFeishu     = "feishu"
	FeatureEmail      = "email"
)

// Resolver resolves share text to a video record.
type Resolver interface {
	Resolve(ctx context.Context, input string) (*domain.VideoRecord, error)
}

// Collaborators groups the optional downstream clients. A nil field means the
// feature is not configured.
type Collaborators struct {
	Transcriber volc.Transcriber
	AI          ark.Client
	Documents   feishu.DocumentStore
	Mailer      mailer.Sender
}

// TranscriptService turns a share link into a cleaned-up transcript and
// delivers it to the configured collaborators.
type TranscriptService struct {
	resolver  Resolver
	collab    Collaborators
	proxyBase string
	apiKey    string
	defaultTo string
	logger    *slog.Logger
}

// TranscriptConfig holds the settings the pipeline needs beyond its collaborators.
type TranscriptConfig struct {
	// PublicBaseURL is where the transcription vendor reaches the download proxy.
	PublicBaseURL string
	// APIKey is appended to proxy URLs when API-key auth is on.
	APIKey string
	// DefaultRecipient is used when an email request names no recipient.
	DefaultRecipient string
}

// NewTranscriptService creates a new transcript service.
func NewTranscriptService(resolver Resolver, collab Collaborators, cfg TranscriptConfig, logger *slog.Logger) *TranscriptService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranscriptService{
		resolver:  resolver,
		collab:    collab,
		proxyBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		apiKey:    cfg.APIKey,
		defaultTo: strings.TrimSpace(cfg.DefaultRecipient),
		logger:    logger,
	}
}

// Features reports which collaborators are configured.
func (s *TranscriptService) Features() map[string]bool {
	return map[string]bool{
		FeatureTranscribe: s.collab.Transcriber != nil,
		FeatureAI:         s.collab.AI != nil,
		FeatureFeishu:     s.collab.Documents != nil,
		FeatureEmail:      s.collab.Mailer != nil,
	}
}

// DefaultRecipient returns the configured fallback email recipient.
func (s *TranscriptService) DefaultRecipient() string {
	return s.defaultTo
}

// Transcript resolves input, transcribes its audio and runs the text through
// the LLM when one is configured.
func (s *TranscriptService) Transcript(ctx context.Context, input string) (*domain.Transcript, error) {
	rec, err := s.resolver.Resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.collab.Transcriber == nil {
		return nil, disabled(FeatureTranscribe)
	}

	audioURL := s.ProxyURL(rec.VideoPlayURL)
	s.logger.Info("transcribing via download proxy", "aweme_id", rec.AwemeID, "proxy_url", audioURL)

	result, err := s.collab.Transcriber.Transcribe(ctx, audioURL)
	observability.CollaboratorCalls.WithLabelValues(FeatureTranscribe, observability.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTranscriptionFailed, err)
	}

	duration := rec.RoundedDuration()
	if duration == 0 {
		duration = domain.RoundDuration(result.Duration)
	}

	t := &domain.Transcript{
		Title:     rec.Title,
		Author:    rec.Author,
		SourceURL: input,
		PlayURL:   rec.VideoPlayURL,
		Duration:  duration,
		Text:      result.Text,
	}
	s.polish(ctx, t, rec.HasTitle())
	return t, nil
}

// SaveToFeishu builds a transcript for input and stores it as a document.
func (s *TranscriptService) SaveToFeishu(ctx context.Context, input string) (*domain.SavedDocument, error) {
	if s.collab.Documents == nil {
		return nil, disabled(FeatureFeishu)
	}

	t, err := s.Transcript(ctx, input)
	if err != nil {
		return nil, err
	}

	doc, err := s.collab.Documents.SaveTranscript(ctx, t)
	observability.CollaboratorCalls.WithLabelValues(FeatureFeishu, observability.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// Email builds a transcript for input and mails it to "to", or to the default
// recipient when "to" is empty.
func (s *TranscriptService) Email(ctx context.Context, input, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		to = s.defaultTo
	}
	if to == "" {
		return domain.ErrMissingRecipient
	}
	if s.collab.Mailer == nil {
		return disabled(FeatureEmail)
	}

	t, err := s.Transcript(ctx, input)
	if err != nil {
		return err
	}

	err = s.collab.Mailer.SendTranscript(ctx, to, t)
	observability.CollaboratorCalls.WithLabelValues(FeatureEmail, observability.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// ProxyURL returns the download proxy address for a media URL.
func (s *TranscriptService) ProxyURL(playURL string) string {
	q := url.Values{}
	q.Set("url", playURL)
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}
	return s.proxyBase + "/api/download?" + q.Encode()
}

// polish corrects and summarizes t.Text and fills in a title. LLM failures
// leave the raw text in place.
func (s *TranscriptService) polish(ctx context.Context, t *domain.Transcript, hasTitle bool) {
	defer func() {
		if t.Title == "" || t.Title == domain.UnknownTitle {
			t.Title = domain.FallbackTitle
		}
	}()

	if s.collab.AI == nil || strings.TrimSpace(t.Text) == "" {
		return
	}

	processed, err := s.collab.AI.Process(ctx, t.Text)
	observability.CollaboratorCalls.WithLabelValues(FeatureAI, observability.Outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("text processing failed, keeping raw transcript", "error", err)
	} else {
		t.Text = processed.Corrected
		t.Summary = processed.Summary
	}

	if hasTitle {
		return
	}
	title, err := s.collab.AI.GenerateTitle(ctx, t.Text)
	observability.CollaboratorCalls.WithLabelValues(FeatureAI, observability.Outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("title generation failed", "error", err)
		return
	}
	t.Title = title
}

// FeatureError reports a call that needs a collaborator which is not configured.
type FeatureError struct {
	Feature string
}

func (e *FeatureError) Error() string {
	return domain.ErrFeatureDisabled.Error() + ": " + e.Feature
}

func (e *FeatureError) Is(target error) bool {
	return target == domain.ErrFeatureDisabled
}

func disabled(feature string) error {
	return &FeatureError{Feature: feature}
}
