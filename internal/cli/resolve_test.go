package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/iconidentify/dyresolve/internal/domain"
	"github.com/iconidentify/dyresolve/pkg/douyin"
)

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

func newPlatform(t *testing.T) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Host {
		case "v.douyin.example":
			http.Redirect(w, r, "https://www.douyin.example/video/7234567890123456789", http.StatusFound)
		case "api.douyin.example":
			w.Write([]byte(`{"status_code": 0, "item_list": [{
				"desc": "周末爬山记",
				"author": {"nickname": "张三"},
				"duration": 12345,
				"video": {"play_addr": {"url_list": ["https://cdn.example/x.mp4"]}}
			}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	target, _ := url.Parse(server.URL)
	clientOptions = []douyin.Option{douyin.WithTransport(hostRewriter{target: target})}
	t.Cleanup(func() { clientOptions = nil })

	t.Setenv("RESOLVER_PLATFORM_HOSTS", "douyin.example")
	t.Setenv("RESOLVER_SHORT_HOSTS", "v.douyin.example")
	t.Setenv("RESOLVER_DETAIL_API_URL", "https://api.douyin.example/item?item_ids=%s")
	t.Setenv("RESOLVER_SHARE_PAGE_URL", "https://share.douyin.example/share/video/%s/")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagJSON, flagDebug, flagProbe, flagConfig = false, false, false, ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestResolveCommand_Text(t *testing.T) {
	newPlatform(t)

	out, err := run(t, "resolve", "看看这个", "https://v.douyin.example/ABC123/", "超搞笑")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}

	for _, want := range []string{
		"Title:    周末爬山记",
		"Author:   张三",
		"ID:       7234567890123456789",
		"Duration: 12.3s",
		"Play URL: https://cdn.example/x.mp4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveCommand_JSON(t *testing.T) {
	newPlatform(t)

	out, err := run(t, "resolve", "--json", "https://v.douyin.example/ABC123/")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}

	var got domain.VideoRecord
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.AwemeID != "7234567890123456789" || got.VideoPlayURL != "https://cdn.example/x.mp4" {
		t.Errorf("record = %+v", got)
	}
	if got.DurationSeconds != 12.3 {
		t.Errorf("duration = %v, want 12.3", got.DurationSeconds)
	}
}

func TestResolveCommand_NoLink(t *testing.T) {
	newPlatform(t)

	_, err := run(t, "resolve", "just some words")
	if err == nil {
		t.Fatal("expected an error for text without a link")
	}
	if !strings.Contains(err.Error(), "未找到抖音链接") {
		t.Errorf("error = %v, want the readable reason", err)
	}
}

func TestResolveCommand_RequiresArgument(t *testing.T) {
	if _, err := run(t, "resolve"); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if out != "dyresolve dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestPrintResolved_Probe(t *testing.T) {
	var buf bytes.Buffer
	rec := &domain.VideoRecord{Title: "t", VideoPlayURL: "https://cdn.example/x.mp4"}

	err := printResolved(&buf, resolveOutput{
		VideoRecord: rec,
		Probe:       &probeOutput{Accessible: false, Error: "status code 403"},
	}, false)
	if err != nil {
		t.Fatalf("printResolved() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Probe:    unreachable (status code 403)") {
		t.Errorf("output = %s", buf.String())
	}
}
