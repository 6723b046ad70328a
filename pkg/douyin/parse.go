package douyin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/iconidentify/dyresolve/internal/domain"
)

// Candidate field paths, probed in order. "*" matches any map key and a
// numeric segment indexes into an array.
var (
	itemPaths = []string{
		"item_list.0",
		"aweme_detail",
		"aweme_list.0",
		"data.aweme_detail",
		"data.item_list.0",
		"loaderData.*.videoInfoRes.item_list.0",
		"app.videoDetail",
	}

	// No-watermark variants come first.
	playURLPaths = []string{
		"nwm_play_url",
		"video.play_addr_nwm.url_list.0",
		"video.play_addr.url_list.0",
		"video.playAddr.0.src",
		"play_addr",
		"play_url",
		"video_play_url",
	}

	playURIPaths = []string{
		"video.play_addr.uri",
		"video.vid",
	}

	titlePaths = []string{
		"desc",
		"title",
		"preview_title",
		"share_info.share_title",
		"share_title",
	}

	authorPaths = []string{
		"author.nickname",
		"authorInfo.nickname",
		"author",
		"nickname",
		"author_name",
	}

	awemeIDPaths = []string{
		"aweme_id",
		"awemeId",
		"item_id",
	}

	durationPaths = []durationPath{
		{path: "duration_ms", unit: 1000},
		{path: "video.duration", unit: 1000},
		{path: "duration", unit: 1000},
		{path: "duration_seconds", unit: 1},
	}

	// Script globals the share pages assign their state to.
	stateMarkers = []string{
		"window._ROUTER_DATA",
		"window._SSR_HYDRATED_DATA",
		"window.__INITIAL_STATE__",
	}
)

type durationPath struct {
	path string
	unit float64 // source units per second
}

// playURLFromURI is the play route for payloads that only carry the video URI.
const playURLFromURI = "https://aweme.snssdk.com/aweme/v1/play/?video_id=%s&ratio=720p&line=0"

// ParseDetail normalizes a detail response body into a VideoRecord.
// JSON bodies are parsed directly; HTML bodies have their embedded state
// extracted first. Missing fields leave the record partially empty rather
// than failing.
func ParseDetail(body []byte) (*domain.VideoRecord, error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrParseFailed)
	}

	var root any
	if body[0] == '{' || body[0] == '[' {
		if err := json.Unmarshal(body, &root); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", domain.ErrParseFailed, err)
		}
	} else {
		state, err := extractEmbeddedState(body)
		if err != nil {
			return nil, err
		}
		root = state
	}

	item, ok := locateItem(root)
	if !ok {
		if code, msg, rejected := apiRejection(root); rejected {
			return nil, fmt.Errorf("%w: status_code %d: %s", domain.ErrUpstreamRejected, code, msg)
		}
		if _, isMap := root.(map[string]any); !isMap {
			return nil, fmt.Errorf("%w: unexpected payload shape", domain.ErrParseFailed)
		}
		item = root
	}

	return recordFromItem(item), nil
}

func recordFromItem(item any) *domain.VideoRecord {
	rec := &domain.VideoRecord{
		Title:           stringAt(item, titlePaths...),
		Author:          stringAt(item, authorPaths...),
		AwemeID:         domain.AwemeID(stringAt(item, awemeIDPaths...)),
		DurationSeconds: durationAt(item),
	}

	if playURL := stringAt(item, playURLPaths...); playURL != "" {
		rec.VideoPlayURL = normalizePlayURL(playURL)
	} else if uri := stringAt(item, playURIPaths...); uri != "" {
		rec.VideoPlayURL = fmt.Sprintf(playURLFromURI, url.QueryEscape(uri))
	}

	return rec
}

// normalizePlayURL switches to the no-watermark play route and fixes
// protocol-relative URLs served by the web pages.
func normalizePlayURL(u string) string {
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	return strings.Replace(u, "/playwm/", "/play/", 1)
}

func locateItem(root any) (any, bool) {
	for _, p := range itemPaths {
		if v, ok := lookup(root, p); ok {
			if _, isMap := v.(map[string]any); isMap {
				return v, true
			}
		}
	}
	return nil, false
}

// apiRejection reports a non-zero status_code from the item API.
func apiRejection(root any) (int, string, bool) {
	v, ok := lookup(root, "status_code")
	if !ok {
		return 0, "", false
	}
	code, ok := toFloat(v)
	if !ok || code == 0 {
		return 0, "", false
	}
	return int(code), stringAt(root, "status_msg"), true
}

func stringAt(v any, paths ...string) string {
	for _, p := range paths {
		got, ok := lookup(v, p)
		if !ok {
			continue
		}
		switch s := got.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		case float64:
			// Ids occasionally arrive as bare numbers.
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	}
	return ""
}

func durationAt(v any) float64 {
	for _, d := range durationPaths {
		got, ok := lookup(v, d.path)
		if !ok {
			continue
		}
		n, ok := toFloat(got)
		if !ok || n <= 0 {
			continue
		}
		return n / d.unit
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// lookup walks a decoded JSON value along a dotted path.
func lookup(v any, path string) (any, bool) {
	return walk(v, strings.Split(path, "."))
}

func walk(v any, segs []string) (any, bool) {
	if len(segs) == 0 {
		return v, v != nil
	}

	switch node := v.(type) {
	case map[string]any:
		if segs[0] == "*" {
			keys := make([]string, 0, len(node))
			for k := range node {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if got, ok := walk(node[k], segs[1:]); ok {
					return got, true
				}
			}
			return nil, false
		}
		child, ok := node[segs[0]]
		if !ok {
			return nil, false
		}
		return walk(child, segs[1:])
	case []any:
		idx, err := strconv.Atoi(segs[0])
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, false
		}
		return walk(node[idx], segs[1:])
	}
	return nil, false
}

// extractEmbeddedState finds the JSON state blob in a share page.
func extractEmbeddedState(body []byte) (any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", domain.ErrParseFailed, err)
	}

	var state any
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()

		if id, _ := s.Attr("id"); id == "RENDER_DATA" {
			decoded, err := url.PathUnescape(strings.TrimSpace(text))
			if err != nil {
				return true
			}
			var v any
			if json.Unmarshal([]byte(decoded), &v) == nil {
				state = v
				return false
			}
			return true
		}

		for _, marker := range stateMarkers {
			if v, ok := decodeAssigned(text, marker); ok {
				state = v
				return false
			}
		}
		return true
	})

	if state == nil {
		return nil, fmt.Errorf("%w: no embedded state in page", domain.ErrParseFailed)
	}
	return state, nil
}

// decodeAssigned decodes the JSON value assigned to marker in a script body,
// e.g. `window._ROUTER_DATA = {...};`.
func decodeAssigned(script, marker string) (any, bool) {
	i := strings.Index(script, marker)
	if i < 0 {
		return nil, false
	}
	rest := script[i+len(marker):]
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(rest[eq+1:])))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, false
	}
	return v, true
}
