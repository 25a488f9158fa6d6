package translatex

import (
	"net/url"
	"strings"
)

// DefaultIgnoredParams lists tracking/marketing query parameters stripped
// during URL normalization. They never affect page content, so dropping
// them keeps one cache entry per logical page.
var DefaultIgnoredParams = []string{
	// UTM parameters
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"utm_id", "utm_source_platform", "utm_creative_format",
	// Facebook
	"fbclid", "fb_action_ids", "fb_action_types", "fb_source",
	// Google
	"gclid", "gclsrc", "dclid", "_ga", "_gid", "_gl",
	// Microsoft/Bing
	"msclkid",
	// Twitter/X
	"twclid",
	// LinkedIn
	"li_fat_id",
	// HubSpot
	"__hstc", "__hssc", "__hsfp",
	// Mailchimp
	"mc_cid", "mc_eid",
	// Marketo
	"mkt_tok",
	// Others
	"srsltid", "ref", "tp", "src",
}

// ignoredParamPrefixes removes whole families of tracking parameters.
var ignoredParamPrefixes = []string{"utm_", "hsa_"}

// URLNormalizer canonicalizes URLs for cache-key purposes. Normalization is
// pure and idempotent: Normalize(Normalize(u)) == Normalize(u).
type URLNormalizer struct {
	home    *url.URL
	ignored map[string]struct{}
}

// NewURLNormalizer builds a normalizer around the site's home URL. Missing
// scheme/host in normalized URLs fall back to the home URL's. Extra
// operator-configured parameter names extend the default ignore list.
func NewURLNormalizer(home string, extraIgnored ...string) *URLNormalizer {
	ignored := make(map[string]struct{}, len(DefaultIgnoredParams)+len(extraIgnored))
	for _, p := range DefaultIgnoredParams {
		ignored[p] = struct{}{}
	}
	for _, p := range extraIgnored {
		p = strings.TrimSpace(p)
		if p != "" {
			ignored[p] = struct{}{}
		}
	}

	parsed, err := url.Parse(home)
	if err != nil {
		parsed = nil
	}
	return &URLNormalizer{home: parsed, ignored: ignored}
}

// Normalize returns the canonical form scheme://host[:port]/path[?query].
// Scheme and host are lower-cased, the path loses its trailing slash
// (except root), tracking parameters are dropped and the remaining query
// keys are sorted for byte stability.
func (n *URLNormalizer) Normalize(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		parsed = &url.URL{Path: "/"}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		if n.home != nil && n.home.Scheme != "" {
			scheme = strings.ToLower(n.home.Scheme)
		} else {
			scheme = "https"
		}
	}

	host := strings.ToLower(parsed.Hostname())
	port := parsed.Port()
	if host == "" {
		if n.home != nil {
			host = strings.ToLower(n.home.Hostname())
			port = n.home.Port()
		}
	}

	path := parsed.EscapedPath()
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	query := n.CleanQuery(parsed.RawQuery)
	if query != "" {
		query = "?" + query
	}

	hostPort := host
	if port != "" {
		hostPort += ":" + port
	}
	return scheme + "://" + hostPort + path + query
}

// CleanQuery strips ignored and prefix-matched tracking parameters from a
// raw query string and re-encodes the rest with keys sorted alphabetically.
// Returns "" when nothing survives.
func (n *URLNormalizer) CleanQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil || len(values) == 0 {
		return ""
	}

	for key := range values {
		if _, drop := n.ignored[key]; drop {
			delete(values, key)
			continue
		}
		lower := strings.ToLower(key)
		for _, prefix := range ignoredParamPrefixes {
			if strings.HasPrefix(lower, prefix) {
				delete(values, key)
				break
			}
		}
	}

	// Encode sorts keys alphabetically, giving byte-stable output for
	// semantically identical queries regardless of original order.
	return values.Encode()
}

// CacheKey normalizes the URL and derives the page-cache key for a language.
func (n *URLNormalizer) CacheKey(rawURL, lang string) string {
	return PageKey(n.Normalize(rawURL), lang)
}
