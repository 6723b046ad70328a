package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Downloader fetches media from the platform CDN.
type Downloader interface {
	// Download opens a stream of the media at url. Caller must close Body.
	Download(ctx context.Context, url string) (*Media, error)

	// Probe checks URL accessibility without downloading the content.
	Probe(ctx context.Context, url string) (*ProbeResult, error)
}

// Media is an open upstream media stream.
type Media struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when unknown
}

// ProbeResult contains information about a media URL.
type ProbeResult struct {
	ContentType   string
	ContentLength int64
	Accessible    bool
	Error         string
}

var (
	// ErrForbidden is matched by 401/403 answers; signed play URLs expire.
	ErrForbidden = errors.New("media url forbidden or expired")

	// ErrRateLimited is matched by 429 answers.
	ErrRateLimited = errors.New("rate limited by media host")
)

// StatusError is a non-200 answer from the media host.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusUnauthorized
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}
