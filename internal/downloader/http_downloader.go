package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/iconidentify/dyresolve/internal/config"
)

// HTTPDownloader implements Downloader with the platform's mobile browser profile.
type HTTPDownloader struct {
	// client is used for short requests (Probe) with an overall timeout
	client *http.Client
	// streamClient has no overall timeout; stalls are caught per read
	streamClient *http.Client
	userAgent    string
	referer      string
	retry        RetryConfig
	readTimeout  time.Duration
	logger       *slog.Logger
}

// NewHTTPDownloader creates a new HTTP-based media downloader.
func NewHTTPDownloader(cfg config.DownloadConfig, logger *slog.Logger) *HTTPDownloader {
	if logger == nil {
		logger = slog.Default()
	}

	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = cfg.HeaderTimeout

	return &HTTPDownloader{
		client: &http.Client{
			Timeout: cfg.HeaderTimeout,
		},
		streamClient: &http.Client{
			Transport: streamTransport,
		},
		userAgent:   cfg.UserAgent,
		referer:     cfg.Referer,
		retry:       RetryConfigFrom(cfg),
		readTimeout: cfg.ReadTimeout,
		logger:      logger,
	}
}

// Download opens the media at url, retrying rate limits and network errors.
// CDN redirects are followed.
func (d *HTTPDownloader) Download(ctx context.Context, url string) (*Media, error) {
	media, err := RetryWithCheck(ctx, d.retry, func() (*Media, error) {
		return d.downloadOnce(ctx, url)
	}, isRetryableError)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return media, nil
}

func (d *HTTPDownloader) downloadOnce(ctx context.Context, url string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	d.setHeaders(req)
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.8")

	resp, err := d.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	size := resp.ContentLength
	if size < 0 {
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
				size = n
			}
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	return &Media{
		Body:          newProgressReader(resp.Body, size, d.readTimeout, d.logger),
		ContentType:   contentType,
		ContentLength: size,
	}, nil
}

// Probe checks URL accessibility without downloading full content.
func (d *HTTPDownloader) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	d.setHeaders(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return &ProbeResult{
			Accessible: false,
			Error:      err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	result := &ProbeResult{
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Accessible:    resp.StatusCode == http.StatusOK,
	}
	if !result.Accessible {
		result.Error = fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return result, nil
}

func (d *HTTPDownloader) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", d.userAgent)
	if d.referer != "" {
		req.Header.Set("Referer", d.referer)
	}
}

// isRetryableError retries everything except non-429 status answers and
// caller cancellation.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return errors.Is(err, ErrRateLimited) || statusErr.StatusCode >= 500
	}
	return true
}

// progressReader tracks streamed bytes and fails a read once no data has
// arrived for readTimeout.
type progressReader struct {
	reader      io.ReadCloser
	total       int64
	downloaded  int64
	readTimeout time.Duration
	lastRead    time.Time
	lastLog     time.Time
	logger      *slog.Logger
	mu          sync.Mutex
	closed      bool
}

func newProgressReader(r io.ReadCloser, total int64, readTimeout time.Duration, logger *slog.Logger) *progressReader {
	now := time.Now()
	return &progressReader{
		reader:      r,
		total:       total,
		readTimeout: readTimeout,
		lastRead:    now,
		lastLog:     now,
		logger:      logger,
	}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if n > 0 {
		p.downloaded += int64(n)
		p.lastRead = now
		if now.Sub(p.lastLog) > 30*time.Second {
			p.logProgress()
			p.lastLog = now
		}
		return n, err
	}

	if err == nil && p.readTimeout > 0 && now.Sub(p.lastRead) > p.readTimeout {
		return 0, fmt.Errorf("download stalled: no data received for %v", p.readTimeout)
	}
	return n, err
}

func (p *progressReader) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.downloaded > 0 {
		p.logProgress()
	}
	p.mu.Unlock()

	return p.reader.Close()
}

func (p *progressReader) logProgress() {
	if p.total > 0 {
		p.logger.Debug("download progress",
			"downloaded_kb", p.downloaded/1024,
			"total_kb", p.total/1024,
			"percent", fmt.Sprintf("%.1f%%", float64(p.downloaded)/float64(p.total)*100),
		)
		return
	}
	p.logger.Debug("download progress", "downloaded_kb", p.downloaded/1024)
}
