// Package router implements the locale-prefixed URL space: prefix
// parsing, the language cookie, canonicalization redirects and internal
// link prefixing.
package router

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	translatex "github.com/translatex/translatex-go"
)

const (
	defaultCookieName = "translatex_lang"
	defaultCookieTTL  = 30 * 24 * time.Hour
	defaultQueryParam = "language"
)

// defaultSkipPrefixes lists path prefixes outside the translated URL
// space: admin surfaces, APIs and feeds keep their one canonical URL.
var defaultSkipPrefixes = []string{"/admin", "/api", "/feed"}

// skippedExtensions are asset suffixes never routed through translation.
var skippedExtensions = []string{
	".css", ".js", ".mjs", ".json", ".xml", ".txt",
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico",
	".woff", ".woff2", ".ttf", ".eot", ".map", ".pdf", ".zip",
}

// Config holds router configuration.
type Config struct {
	DefaultLang  string        // unprefixed site language (default "en")
	CookieName   string        // default "translatex_lang"
	CookieTTL    time.Duration // default 30 days
	QueryParam   string        // explicit override parameter (default "language")
	SkipPrefixes []string      // extra path prefixes excluded from the locale space
}

// Router parses and canonicalizes the locale-prefixed URL space. All of
// its request-facing methods are pure reads over the request; only the
// cookie setters touch the response.
type Router struct {
	defaultLang  string
	cookieName   string
	cookieTTL    time.Duration
	queryParam   string
	skipPrefixes []string
}

// New creates a Router from cfg, applying defaults for unset fields.
func New(cfg Config) *Router {
	defaultLang := translatex.NormalizeLang(cfg.DefaultLang)
	if !translatex.IsSupportedLang(defaultLang) {
		defaultLang = "en"
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = defaultCookieName
	}
	cookieTTL := cfg.CookieTTL
	if cookieTTL <= 0 {
		cookieTTL = defaultCookieTTL
	}
	queryParam := cfg.QueryParam
	if queryParam == "" {
		queryParam = defaultQueryParam
	}

	skip := make([]string, 0, len(defaultSkipPrefixes)+len(cfg.SkipPrefixes))
	skip = append(skip, defaultSkipPrefixes...)
	skip = append(skip, cfg.SkipPrefixes...)

	return &Router{
		defaultLang:  defaultLang,
		cookieName:   cookieName,
		cookieTTL:    cookieTTL,
		queryParam:   queryParam,
		skipPrefixes: skip,
	}
}

// DefaultLang returns the site's unprefixed language.
func (rt *Router) DefaultLang() string {
	return rt.defaultLang
}

// QueryParamName returns the name of the explicit override parameter.
func (rt *Router) QueryParamName() string {
	return rt.queryParam
}

// SplitPrefix extracts a supported language prefix from a path. The rest
// always starts with "/". Unsupported first segments, including unknown
// region-qualified codes, are not languages and come back as ("", path).
func (rt *Router) SplitPrefix(path string) (lang, rest string) {
	if path == "" || path == "/" {
		return "", "/"
	}

	trimmed := strings.TrimPrefix(path, "/")
	segment := trimmed
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		segment = trimmed[:i]
		rest = trimmed[i:]
	} else {
		rest = "/"
	}

	normalized := translatex.NormalizeLang(segment)
	if !translatex.IsSupportedLang(normalized) {
		return "", path
	}
	return normalized, rest
}

// PrefixPath prepends the language prefix unless the language is the
// default or the path already carries it.
func (rt *Router) PrefixPath(path, lang string) string {
	if lang == "" || lang == rt.defaultLang {
		return path
	}
	if existing, _ := rt.SplitPrefix(path); existing != "" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "/" {
		return "/" + lang + "/"
	}
	return "/" + lang + path
}

// Eligible reports whether the request participates in the locale URL
// space: GET-like, not an excluded prefix, not a static asset.
func (rt *Router) Eligible(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	_, rest := rt.SplitPrefix(r.URL.Path)
	for _, prefix := range rt.skipPrefixes {
		if strings.HasPrefix(rest, prefix) {
			return false
		}
	}

	lower := strings.ToLower(rest)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// CookieLang reads the visitor's language cookie. Unsupported values
// count as no cookie.
func (rt *Router) CookieLang(r *http.Request) string {
	cookie, err := r.Cookie(rt.cookieName)
	if err != nil {
		return ""
	}
	lang := translatex.NormalizeLang(cookie.Value)
	if !translatex.IsSupportedLang(lang) {
		return ""
	}
	return lang
}

// QueryOverride returns the explicit language override, if the request
// carries one. ok is true even when the value is the default language,
// so callers can clear the cookie.
func (rt *Router) QueryOverride(r *http.Request) (lang string, ok bool) {
	raw := r.URL.Query().Get(rt.queryParam)
	if raw == "" {
		return "", false
	}
	lang = translatex.NormalizeLang(raw)
	if !translatex.IsSupportedLang(lang) {
		return "", false
	}
	return lang, true
}

// SetCookie records the visitor's language choice for 30 days.
func (rt *Router) SetCookie(w http.ResponseWriter, lang string) {
	http.SetCookie(w, &http.Cookie{
		Name:     rt.cookieName,
		Value:    lang,
		Path:     "/",
		Expires:  time.Now().Add(rt.cookieTTL),
		MaxAge:   int(rt.cookieTTL / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie drops the language cookie, used when the visitor picks the
// default language explicitly.
func (rt *Router) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     rt.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
}

// ActiveLanguage resolves the language for a request by precedence:
// explicit query override, then path prefix, then cookie. Returns "" when
// the request should be served untranslated (no choice, or the choice is
// the default language). Pure: reads request state only.
func (rt *Router) ActiveLanguage(r *http.Request) string {
	lang := ""
	if override, ok := rt.QueryOverride(r); ok {
		lang = override
	} else if prefix, _ := rt.SplitPrefix(r.URL.Path); prefix != "" {
		lang = prefix
	} else {
		lang = rt.CookieLang(r)
	}

	if lang == "" || lang == rt.defaultLang {
		return ""
	}
	return lang
}

// Redirect is a canonicalization decision.
type Redirect struct {
	Location string
	Status   int // http.StatusMovedPermanently or http.StatusFound
}

// Canonicalize applies the locale redirect state machine and returns the
// redirect to issue, or nil when the URL is already canonical:
//
//	prefix == default           -> 301 strip (default is never prefixed)
//	cookie set, no prefix       -> 302 add the cookie's prefix
//	cookie != prefix (both set) -> 302 replace, cookie wins
//	cookie == default, prefix   -> 302 strip
//
// Requests with an explicit query override are left alone; the override
// handler owns the cookie in that case.
func (rt *Router) Canonicalize(r *http.Request) *Redirect {
	if !rt.Eligible(r) {
		return nil
	}
	if _, ok := rt.QueryOverride(r); ok {
		return nil
	}

	prefix, rest := rt.SplitPrefix(r.URL.Path)
	cookie := rt.CookieLang(r)
	query := r.URL.RawQuery

	switch {
	case prefix == rt.defaultLang:
		return &Redirect{Location: withQuery(rest, query), Status: http.StatusMovedPermanently}

	case prefix == "" && cookie != "" && cookie != rt.defaultLang:
		return &Redirect{Location: withQuery(rt.PrefixPath(rest, cookie), query), Status: http.StatusFound}

	case prefix != "" && cookie != "" && cookie != rt.defaultLang && cookie != prefix:
		return &Redirect{Location: withQuery(rt.PrefixPath(rest, cookie), query), Status: http.StatusFound}

	case prefix != "" && cookie == rt.defaultLang:
		return &Redirect{Location: withQuery(rest, query), Status: http.StatusFound}
	}

	return nil
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// internalHost reports whether a link target stays on site.
func internalHost(link *url.URL, siteHost string) bool {
	if link.Host == "" {
		return !link.IsAbs()
	}
	return strings.EqualFold(link.Hostname(), siteHost)
}
