package service

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/iconidentify/dyresolve/internal/config"
	"github.com/iconidentify/dyresolve/pkg/douyin"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hostRewriter sends every request to a single test server while leaving the
// Host header and the request seen by the client untouched.
type hostRewriter struct {
	target *url.URL
}

func (h hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	out.Host = req.URL.Host

	resp, err := http.DefaultTransport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// newPlatformClient builds a douyin client whose platform hosts are all served
// by server.
func newPlatformClient(server *httptest.Server) *douyin.Client {
	target, _ := url.Parse(server.URL)
	cfg := config.ResolverConfig{
		HTTPTimeout:   2 * time.Second,
		UserAgent:     config.MobileUserAgent,
		Referer:       "https://www.douyin.com/",
		PlatformHosts: []string{"douyin.example"},
		ShortHosts:    []string{"v.douyin.example"},
		DetailAPIURL:  "https://api.douyin.example/item?item_ids=%s",
		SharePageURL:  "https://share.douyin.example/share/video/%s/",
	}
	return douyin.NewClient(cfg, testLogger(), douyin.WithTransport(hostRewriter{target: target}))
}
