package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iconidentify/dyresolve/internal/domain"
	"github.com/iconidentify/dyresolve/internal/observability"
	"github.com/iconidentify/dyresolve/pkg/douyin"
)

// LinkClient is the platform-facing side of resolution.
type LinkClient interface {
	ExtractURL(text string) (string, error)
	ExpandShortLink(ctx context.Context, rawURL string) (string, error)
	FetchDetail(ctx context.Context, awemeID domain.AwemeID) (*domain.VideoRecord, error)
}

var _ LinkClient = (*douyin.Client)(nil)

// ResolveService turns free-form share text into a VideoRecord.
type ResolveService struct {
	client  LinkClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolveService creates a new resolve service. A non-positive timeout
// leaves the caller's deadline as the only bound.
func NewResolveService(client LinkClient, timeout time.Duration, logger *slog.Logger) *ResolveService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveService{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Resolve runs the full chain for input. The returned record is never nil and
// always carries SourceURL = input; VideoPlayURL is empty unless resolution
// succeeded. A failure is reported as a *domain.ResolveError.
func (s *ResolveService) Resolve(ctx context.Context, input string) (*domain.VideoRecord, error) {
	start := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rec := domain.NewVideoRecord(input)
	stage, err := s.resolve(ctx, rec)

	outcome := observability.Outcome(err)
	observability.ResolveTotal.WithLabelValues(stage, outcome).Inc()
	observability.ResolveDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		resolveErr := domain.NewResolveError(stage, input, err)
		s.logger.Info("resolve failed",
			"stage", stage,
			"reason", resolveErr.Reason(),
			"error", err,
			"duration", time.Since(start),
		)
		return rec, resolveErr
	}

	s.logger.Info("resolve complete",
		"aweme_id", rec.AwemeID,
		"title", rec.Title,
		"duration_seconds", rec.DurationSeconds,
		"elapsed", time.Since(start),
	)
	return rec, nil
}

// resolve fills rec and returns the stage it stopped in.
func (s *ResolveService) resolve(ctx context.Context, rec *domain.VideoRecord) (string, error) {
	link, err := s.client.ExtractURL(rec.SourceURL)
	if err != nil {
		return domain.StageExtractURL, err
	}

	canonical, err := s.client.ExpandShortLink(ctx, link)
	if err != nil {
		return domain.StageShortLink, err
	}

	awemeID, err := douyin.ExtractAwemeID(canonical)
	if err != nil {
		return domain.StageContentID, err
	}
	s.logger.Debug("content id extracted", "url", canonical, "aweme_id", awemeID)

	detail, err := s.client.FetchDetail(ctx, awemeID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}
		return domain.StageDetail, err
	}

	rec.Title = detail.Title
	rec.Author = detail.Author
	rec.AwemeID = awemeID
	rec.VideoPlayURL = detail.VideoPlayURL
	rec.DurationSeconds = detail.DurationSeconds

	if !rec.Resolved() {
		return domain.StageDetail, fmt.Errorf("%w: no playable media url", domain.ErrParseFailed)
	}
	return domain.StageDetail, nil
}
