package douyin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iconidentify/dyresolve/internal/config"
	"github.com/iconidentify/dyresolve/internal/domain"
	"github.com/iconidentify/dyresolve/internal/observability"
)

const (
	maxRedirects = 10
	maxBodySize  = 8 << 20
)

// StatusError is returned when a platform endpoint answers with a non-2xx status.
// It matches domain.ErrUpstreamRejected under errors.Is.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == domain.ErrUpstreamRejected
}

type endpoint struct {
	name        string
	urlTemplate string
}

// Client talks to Douyin's public share surfaces with a mobile browser profile.
type Client struct {
	httpClient    *http.Client
	userAgent     string
	referer       string
	platformHosts []string
	shortHosts    []string
	endpoints     []endpoint
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, e.g. to route through a proxy.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient creates a new Douyin client.
func NewClient(cfg config.ResolverConfig, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	var endpoints []endpoint
	if strings.Contains(cfg.DetailAPIURL, "%s") {
		endpoints = append(endpoints, endpoint{name: "item_api", urlTemplate: cfg.DetailAPIURL})
	}
	if strings.Contains(cfg.SharePageURL, "%s") {
		endpoints = append(endpoints, endpoint{name: "share_page", urlTemplate: cfg.SharePageURL})
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent:     cfg.UserAgent,
		referer:       cfg.Referer,
		platformHosts: cfg.PlatformHosts,
		shortHosts:    cfg.ShortHosts,
		endpoints:     endpoints,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtractURL finds the first platform or short-link URL in free-form text.
func (c *Client) ExtractURL(text string) (string, error) {
	hosts := make([]string, 0, len(c.platformHosts)+len(c.shortHosts))
	hosts = append(hosts, c.platformHosts...)
	hosts = append(hosts, c.shortHosts...)
	return ExtractURL(text, hosts)
}

// IsShortLink reports whether rawURL needs expanding before id extraction.
func (c *Client) IsShortLink(rawURL string) bool {
	return IsShortLink(rawURL, c.shortHosts)
}

// ExpandShortLink follows the redirect chain of a short link and returns the
// final URL. URLs that are not on a short-link host are returned unchanged
// without any network call.
func (c *Client) ExpandShortLink(ctx context.Context, rawURL string) (string, error) {
	if !c.IsShortLink(rawURL) {
		return rawURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", domain.ErrShortLinkUnresolvable, err)
	}
	c.setBrowserHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.UpstreamRequests.WithLabelValues("short_link", "error").Inc()
		return "", fmt.Errorf("%w: %v", domain.ErrShortLinkUnresolvable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	observability.UpstreamRequests.WithLabelValues("short_link", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: terminal status %d", domain.ErrShortLinkUnresolvable, resp.StatusCode)
	}

	final := resp.Request.URL.String()
	c.logger.Debug("short link expanded",
		"short_url", rawURL,
		"final_url", final,
		"duration", time.Since(start),
	)
	return final, nil
}

// FetchDetail retrieves item metadata for awemeID. The JSON item API is tried
// first and the mobile share page second; the first endpoint that yields a
// playable URL wins. A record with an empty VideoPlayURL is returned, without
// error, when an endpoint answered but exposed no media.
func (c *Client) FetchDetail(ctx context.Context, awemeID domain.AwemeID) (*domain.VideoRecord, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("%w: no detail endpoint configured", domain.ErrParseFailed)
	}

	var (
		partial *domain.VideoRecord
		errs    []error
	)

	for _, ep := range c.endpoints {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		rec, err := c.fetchEndpoint(ctx, ep, awemeID)
		if err != nil {
			c.logger.Warn("detail endpoint failed",
				"endpoint", ep.name,
				"aweme_id", awemeID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", ep.name, err))
			continue
		}
		if rec.Resolved() {
			return rec, nil
		}
		if partial == nil {
			partial = rec
		}
	}

	if partial != nil {
		return partial, nil
	}
	return nil, errors.Join(errs...)
}

func (c *Client) fetchEndpoint(ctx context.Context, ep endpoint, awemeID domain.AwemeID) (*domain.VideoRecord, error) {
	endpointURL := fmt.Sprintf(ep.urlTemplate, url.QueryEscape(awemeID.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.UpstreamRequests.WithLabelValues(ep.name, "error").Inc()
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	observability.UpstreamRequests.WithLabelValues(ep.name, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: endpointURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return ParseDetail(body)
}

// setBrowserHeaders makes the request look like a phone browser coming from
// the platform's own site; bare requests get empty or captcha pages.
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
}
