package pipeline

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/translatex/translatex-go/router"
)

// Handler buffers the upstream renderer's HTML and swaps in the
// translated page. Everything that is not an eligible, translatable,
// successful HTML response streams through untouched.
type Handler struct {
	pipeline *Pipeline
	router   *router.Router
	next     http.Handler
	logger   *slog.Logger
}

// NewHandler wraps next with locale routing and translation.
func NewHandler(p *Pipeline, rt *router.Router, next http.Handler) *Handler {
	return &Handler{
		pipeline: p,
		router:   rt,
		next:     next,
		logger:   p.logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.router.Eligible(r) {
		h.next.ServeHTTP(w, r)
		return
	}

	// An explicit choice updates the cookie before anything else;
	// choosing the default language clears it.
	if lang, ok := h.router.QueryOverride(r); ok {
		if lang == h.router.DefaultLang() {
			h.router.ClearCookie(w)
		} else {
			h.router.SetCookie(w, lang)
		}
	}

	if redirect := h.router.Canonicalize(r); redirect != nil {
		http.Redirect(w, r, redirect.Location, redirect.Status)
		return
	}

	lang := h.router.ActiveLanguage(r)
	if lang == "" {
		h.next.ServeHTTP(w, r)
		return
	}

	// The upstream renderer only knows unprefixed URLs.
	upstream := r
	if prefix, rest := h.router.SplitPrefix(r.URL.Path); prefix != "" {
		upstream = r.Clone(r.Context())
		upstream.URL.Path = rest
		upstream.RequestURI = rest
		if r.URL.RawQuery != "" {
			upstream.RequestURI += "?" + r.URL.RawQuery
		}
	}

	rec := newRecorder()
	h.next.ServeHTTP(rec, upstream)

	if !rec.translatable() {
		rec.copyTo(w)
		return
	}

	result := h.pipeline.Translate(r.Context(), Request{
		URL:          h.cacheURL(upstream),
		Lang:         lang,
		HTML:         rec.body.String(),
		ForceRefresh: r.URL.Query().Get("nocache") == "1",
	})

	out := h.router.PrefixInternalLinks(result.HTML, lang, r.Host)

	headers := w.Header()
	for key, values := range rec.header {
		headers[key] = values
	}
	headers.Set("Content-Length", strconv.Itoa(len(out)))
	headers.Set("Content-Language", lang)
	w.WriteHeader(rec.status)
	_, _ = w.Write([]byte(out))
}

// cacheURL is the page's identity for caching: the upstream URL with the
// control parameters (language override, nocache) removed, so one page
// never splits into several cache entries.
func (h *Handler) cacheURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	query := r.URL.Query()
	query.Del(h.router.QueryParamName())
	query.Del("nocache")

	u := scheme + "://" + r.Host + r.URL.Path
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// recorder buffers one upstream response.
type recorder struct {
	header http.Header
	body   *bytes.Buffer
	status int
}

func newRecorder() *recorder {
	return &recorder{
		header: make(http.Header),
		body:   &bytes.Buffer{},
		status: http.StatusOK,
	}
}

func (rec *recorder) Header() http.Header {
	return rec.header
}

func (rec *recorder) Write(b []byte) (int, error) {
	return rec.body.Write(b)
}

func (rec *recorder) WriteHeader(status int) {
	rec.status = status
}

// translatable reports whether the buffered response is a successful
// HTML page worth translating.
func (rec *recorder) translatable() bool {
	if rec.status != http.StatusOK {
		return false
	}
	contentType := rec.header.Get("Content-Type")
	if contentType == "" {
		// Upstreams that never set a type almost always serve HTML.
		return rec.body.Len() > 0
	}
	return strings.Contains(contentType, "text/html")
}

func (rec *recorder) copyTo(w http.ResponseWriter) {
	headers := w.Header()
	for key, values := range rec.header {
		headers[key] = values
	}
	w.WriteHeader(rec.status)
	_, _ = w.Write(rec.body.Bytes())
}
