// Package client implements the remote translate/detect API client with
// adaptive batching, source-language heuristics and an alternative
// OpenAI-backed translator.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	translatex "github.com/translatex/translatex-go"
	"github.com/translatex/translatex-go/cache"
)

// Batch sizing limits for chunked translation.
const (
	// MaxTextsPerRequest is the hard cap of texts per API request.
	MaxTextsPerRequest = 120
	// DefaultTextBatch is the default batch size for chunked translation.
	DefaultTextBatch = 90
	// maxShrinkDepth bounds adaptive batch-shrink recursion.
	maxShrinkDepth = 4
)

const (
	defaultTranslateTimeout = 45 * time.Second
	defaultDetectTimeout    = 25 * time.Second
	defaultDetectTTL        = 12 * time.Hour
)

// Translator is the behavior the pipeline needs from a translation backend.
type Translator interface {
	// TranslateHTML translates a whole HTML document into targetLang.
	TranslateHTML(ctx context.Context, html, targetLang string) (string, error)

	// TranslateTexts translates a batch of texts into targetLang, preserving
	// order and count. sourceHTML is the page the texts came from and feeds
	// the source-language heuristics; it is never sent whole.
	TranslateTexts(ctx context.Context, texts []string, targetLang, sourceHTML string) ([]string, error)
}

// Config holds configuration for the hosted API client.
type Config struct {
	APIKey       string
	TranslateURL string // translate endpoint
	DetectURL    string // detect endpoint

	TranslateTimeout time.Duration // default 45s
	DetectTimeout    time.Duration // default 25s

	// TextBatch is the preferred texts-per-request batch size.
	// Clamped to MaxTextsPerRequest; default DefaultTextBatch.
	TextBatch int

	// Concurrency is the number of batch requests allowed in flight for
	// one TranslateTexts call. Batches are independent of each other's
	// content, so they may run in parallel; results are reassembled by
	// index. Default 1 (sequential).
	Concurrency int

	// DetectCache memoizes detection results by content hash.
	// Defaults to an in-process cache.
	DetectCache cache.TTLCache
	DetectTTL   time.Duration

	Logger *slog.Logger
}

// Client talks to the hosted translate/detect API. Every call returns its
// own error value carrying the HTTP status and body snippet, so concurrent
// requests never observe each other's failures.
type Client struct {
	apiKey       string
	translateURL string
	detectURL    string

	translate *resty.Client
	detect    *resty.Client

	textBatch   int
	concurrency int
	detectCache cache.TTLCache
	detectTTL   time.Duration
	logger      *slog.Logger
}

// New creates a Client from cfg, applying defaults for unset fields.
func New(cfg Config) *Client {
	translateTimeout := cfg.TranslateTimeout
	if translateTimeout <= 0 {
		translateTimeout = defaultTranslateTimeout
	}
	detectTimeout := cfg.DetectTimeout
	if detectTimeout <= 0 {
		detectTimeout = defaultDetectTimeout
	}

	textBatch := cfg.TextBatch
	if textBatch <= 0 {
		textBatch = DefaultTextBatch
	}
	if textBatch > MaxTextsPerRequest {
		textBatch = MaxTextsPerRequest
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	detectCache := cfg.DetectCache
	if detectCache == nil {
		detectCache = cache.NewInMemoryCache()
	}
	detectTTL := cfg.DetectTTL
	if detectTTL <= 0 {
		detectTTL = defaultDetectTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiKey:       cfg.APIKey,
		translateURL: cfg.TranslateURL,
		detectURL:    cfg.DetectURL,
		translate:    resty.New().SetTimeout(translateTimeout),
		detect:       resty.New().SetTimeout(detectTimeout),
		textBatch:    textBatch,
		concurrency:  concurrency,
		detectCache:  detectCache,
		detectTTL:    detectTTL,
		logger:       logger,
	}
}

// TranslateHTML translates a whole HTML document in one request, then
// post-processes lang and og:locale metadata for the target language.
func (c *Client) TranslateHTML(ctx context.Context, htmlContent, targetLang string) (string, error) {
	source := c.sourceHint(ctx, htmlContent, targetLang)

	translated, _, err := c.doTranslateHTML(ctx, htmlContent, targetLang, source)
	if err != nil {
		return "", err
	}

	// Spanish pages asked for in Portuguese sometimes come back untouched
	// because the backend detects the source as the target. Force sl=es once.
	if targetLang == "pt" && source != "es" && looksSpanish(translated) {
		retry, _, retryErr := c.doTranslateHTML(ctx, htmlContent, targetLang, "es")
		if retryErr == nil {
			translated = retry
		} else {
			c.logger.Debug("pt retry with forced Spanish source failed", "error", retryErr)
		}
	}

	return PostprocessHTML(translated, targetLang), nil
}

// TranslateTexts translates texts in batches, preserving order. A batch
// whose response count does not match is retried with a smaller batch size,
// recursively, up to maxShrinkDepth; running out of depth fails the call.
func (c *Client) TranslateTexts(ctx context.Context, texts []string, targetLang, sourceHTML string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	source := c.sourceHint(ctx, sourceHTML, targetLang)

	out, err := c.translateWindows(ctx, texts, targetLang, source, c.textBatch)
	if err != nil {
		return nil, err
	}

	if targetLang == "pt" && source != "es" && looksSpanish(strings.Join(out, " ")) {
		retry, retryErr := c.translateWindows(ctx, texts, targetLang, "es", c.textBatch)
		if retryErr == nil {
			out = retry
		} else {
			c.logger.Debug("pt retry with forced Spanish source failed", "error", retryErr)
		}
	}

	return out, nil
}

// translateWindows walks texts in windows of size. Windows carry no
// cross-window state, so up to c.concurrency of them run in flight at
// once; the final order is restored by window index, never by completion
// order.
func (c *Client) translateWindows(ctx context.Context, texts []string, targetLang, source string, size int) ([]string, error) {
	type window struct {
		start, end int
	}
	var windows []window
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		windows = append(windows, window{start, end})
	}

	if c.concurrency <= 1 || len(windows) == 1 {
		out := make([]string, 0, len(texts))
		for _, w := range windows {
			got, err := c.translateWindow(ctx, texts[w.start:w.end], targetLang, source, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, got...)
		}
		return out, nil
	}

	results := make([][]string, len(windows))
	errs := make([]error, len(windows))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, w := range windows {
		wg.Add(1)
		go func(i int, w window) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = c.translateWindow(ctx, texts[w.start:w.end], targetLang, source, 0)
		}(i, w)
	}
	wg.Wait()

	out := make([]string, 0, len(texts))
	for i := range windows {
		if errs[i] != nil {
			return nil, errs[i]
		}
		out = append(out, results[i]...)
	}
	return out, nil
}

// translateWindow translates one window, shrinking and recursing on count
// mismatches. The new size is the larger of what the API actually returned
// and half the failed size, but always strictly smaller than the failed
// size and within the hard cap.
func (c *Client) translateWindow(ctx context.Context, batch []string, targetLang, source string, depth int) ([]string, error) {
	if depth > maxShrinkDepth {
		return nil, &translatex.ClientError{
			Kind: translatex.KindBatchMismatch,
			Body: fmt.Sprintf("batch of %d still mismatched after %d shrinks", len(batch), maxShrinkDepth),
		}
	}

	got, _, err := c.doTranslateText(ctx, batch, targetLang, source)
	if err != nil {
		return nil, err
	}
	if len(got) == len(batch) {
		return got, nil
	}

	candidate := len(got)
	if candidate == 0 {
		candidate = len(batch) / 2
	}
	newSize := candidate
	if half := len(batch) / 2; half > newSize {
		newSize = half
	}
	if newSize >= len(batch) {
		newSize = len(batch) - 1
	}
	if newSize > MaxTextsPerRequest {
		newSize = MaxTextsPerRequest
	}
	if newSize < 1 {
		return nil, &translatex.ClientError{
			Kind:  translatex.KindBatchMismatch,
			Body:  fmt.Sprintf("cannot shrink batch of %d below 1", len(batch)),
			Cause: &translatex.CountMismatchError{Expected: len(batch), Got: len(got)},
		}
	}

	c.logger.Debug("translation batch mismatch, shrinking",
		"sent", len(batch), "received", len(got), "new_size", newSize, "depth", depth+1)

	out := make([]string, 0, len(batch))
	for start := 0; start < len(batch); start += newSize {
		end := start + newSize
		if end > len(batch) {
			end = len(batch)
		}
		part, err := c.translateWindow(ctx, batch[start:end], targetLang, source, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

// translateResponse is the wire shape of a /translate reply. The
// translation field is a string for html requests and an array for
// batched text requests.
type translateResponse struct {
	Translation  json.RawMessage `json:"translation"`
	DetectedLang string          `json:"detected_lang"`
}

func (c *Client) doTranslateText(ctx context.Context, batch []string, targetLang, source string) ([]string, string, error) {
	form := url.Values{"text": batch}

	resp, err := c.translate.R().
		SetContext(ctx).
		SetQueryParams(c.queryParams(targetLang, source)).
		SetFormDataFromValues(form).
		Post(c.translateURL)
	if err != nil {
		return nil, "", &translatex.ClientError{Kind: translatex.KindTransport, Cause: err}
	}
	if resp.IsError() {
		return nil, "", &translatex.ClientError{Status: resp.StatusCode(), Body: snippet(resp.String())}
	}

	var parsed translateResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, "", &translatex.ClientError{Status: resp.StatusCode(), Body: snippet(resp.String()), Cause: err}
	}

	var texts []string
	if err := json.Unmarshal(parsed.Translation, &texts); err != nil {
		// A single text sometimes comes back as a bare string.
		var one string
		if err := json.Unmarshal(parsed.Translation, &one); err != nil {
			return nil, "", &translatex.ClientError{Status: resp.StatusCode(), Body: snippet(resp.String()), Cause: err}
		}
		texts = []string{one}
	}

	return texts, parsed.DetectedLang, nil
}

func (c *Client) doTranslateHTML(ctx context.Context, htmlContent, targetLang, source string) (string, string, error) {
	resp, err := c.translate.R().
		SetContext(ctx).
		SetQueryParams(c.queryParams(targetLang, source)).
		SetFormData(map[string]string{"html": htmlContent}).
		Post(c.translateURL)
	if err != nil {
		return "", "", &translatex.ClientError{Kind: translatex.KindTransport, Cause: err}
	}
	if resp.IsError() {
		return "", "", &translatex.ClientError{Status: resp.StatusCode(), Body: snippet(resp.String())}
	}

	var parsed translateResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", "", &translatex.ClientError{Status: resp.StatusCode(), Body: snippet(resp.String()), Cause: err}
	}

	var translated string
	if err := json.Unmarshal(parsed.Translation, &translated); err != nil || translated == "" {
		return "", "", &translatex.ClientError{
			Status: resp.StatusCode(),
			Body:   snippet(resp.String()),
			Cause:  fmt.Errorf("missing translation field"),
		}
	}

	return translated, parsed.DetectedLang, nil
}

func (c *Client) queryParams(targetLang, source string) map[string]string {
	if source == "" {
		source = "auto"
	}
	return map[string]string{
		"sl":  source,
		"tl":  targetLang,
		"key": c.apiKey,
	}
}

// sourceHint decides the sl parameter before calling the API. Portuguese
// targets check the cheap Spanish heuristic first; everything else asks
// the detect endpoint, falling back to auto when detection fails.
func (c *Client) sourceHint(ctx context.Context, htmlContent, targetLang string) string {
	if targetLang == "pt" && looksSpanish(htmlContent) {
		return "es"
	}

	detected, err := c.DetectLanguage(ctx, htmlContent)
	if err != nil {
		c.logger.Debug("language detection failed, using auto", "error", err)
		return "auto"
	}
	if detected == "" {
		return "auto"
	}
	return detected
}

// ShouldFallbackToHTML reports whether a failed chunk translation is worth
// retrying as a full-HTML request. Reassembly failures are; transport
// errors, exhausted batches, payload-too-large, rate limits and server
// errors would fail identically and are not.
func ShouldFallbackToHTML(err error) bool {
	if err == nil {
		return false
	}

	var ce *translatex.ClientError
	if errors.As(err, &ce) {
		if ce.Kind == translatex.KindTransport || ce.Kind == translatex.KindBatchMismatch {
			return false
		}
		if ce.Status == 413 || ce.Status == 429 || ce.Status >= 500 {
			return false
		}
	}
	return true
}

// snippet truncates a response body for diagnostics.
func snippet(s string) string {
	const max = 400
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Verify Client implements Translator
var _ Translator = (*Client)(nil)
