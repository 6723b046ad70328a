package douyin

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/iconidentify/dyresolve/internal/domain"
)

// urlPattern matches URL-ish runs of ASCII; share text glues CJK and emoji
// directly to links, so the character class is what ends a match.
var urlPattern = regexp.MustCompile(`(?i)https?://[a-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+`)

// Punctuation share messages commonly glue onto the end of a link.
const trailingPunct = `.,;:!?)]}'"`

// ExtractURL returns the first http(s) URL in text whose host is one of hosts
// or a subdomain of one.
func ExtractURL(text string, hosts []string) (string, error) {
	for _, match := range urlPattern.FindAllString(text, -1) {
		candidate := strings.TrimRight(match, trailingPunct)
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			continue
		}
		if MatchesHost(u.Hostname(), hosts) {
			return candidate, nil
		}
	}
	return "", domain.ErrNoURLFound
}

// MatchesHost reports whether host equals one of hosts or is a subdomain of one.
func MatchesHost(host string, hosts []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	for _, h := range hosts {
		h = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// IsShortLink reports whether rawURL points at one of the short-link hosts.
func IsShortLink(rawURL string, shortHosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return MatchesHost(u.Hostname(), shortHosts)
}

// idRule pulls a content id either from the URL path or from a query parameter.
type idRule struct {
	name    string
	pattern *regexp.Regexp
	param   string
}

// Evaluated in order; more specific path shapes come first.
var awemeIDRules = []idRule{
	{name: "share_video", pattern: regexp.MustCompile(`/share/video/(\d+)(?:/|$)`)},
	{name: "video", pattern: regexp.MustCompile(`/video/(\d+)(?:/|$)`)},
	{name: "share_note", pattern: regexp.MustCompile(`/share/note/(\d+)(?:/|$)`)},
	{name: "note", pattern: regexp.MustCompile(`/note/(\d+)(?:/|$)`)},
	{name: "share_slides", pattern: regexp.MustCompile(`/share/slides/(\d+)(?:/|$)`)},
	{name: "modal_id", param: "modal_id"},
	{name: "aweme_id", param: "aweme_id"},
	{name: "item_id", param: "item_id"},
	{name: "vid", param: "vid"},
}

// ExtractAwemeID pulls the content id out of a canonical long URL.
// It handles both the mobile share page and desktop web path shapes:
//
//	https://www.iesdouyin.com/share/video/7234567890123456789/?region=CN
//	https://www.douyin.com/video/7234567890123456789
//	https://www.douyin.com/discover?modal_id=7234567890123456789
func ExtractAwemeID(rawURL string) (domain.AwemeID, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNoContentID, err)
	}

	query := u.Query()
	for _, rule := range awemeIDRules {
		if rule.pattern != nil {
			if m := rule.pattern.FindStringSubmatch(u.Path); len(m) == 2 {
				return domain.AwemeID(m[1]), nil
			}
			continue
		}
		if v := strings.TrimSpace(query.Get(rule.param)); isDigits(v) {
			return domain.AwemeID(v), nil
		}
	}

	return "", domain.ErrNoContentID
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
