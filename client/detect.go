package client

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	translatex "github.com/translatex/translatex-go"
)

// detectSampleLimit caps the visible-text sample sent to /detect.
const detectSampleLimit = 2000

// DetectLanguage guesses the source language of an HTML document from a
// visible-text sample. Results are memoized by sample hash, so repeated
// pages from the same site rarely hit the endpoint. An empty result means
// the endpoint had no confident guess.
func (c *Client) DetectLanguage(ctx context.Context, htmlContent string) (string, error) {
	sample := textSample(htmlContent)
	if sample == "" {
		return "", nil
	}

	key := "detect:" + translatex.HashText(sample)
	if cached, ok := c.detectCache.Get(key); ok {
		return cached, nil
	}

	resp, err := c.detect.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"key": c.apiKey}).
		SetFormData(map[string]string{"text": sample}).
		Post(c.detectURL)
	if err != nil {
		return "", &translatex.ClientError{Kind: translatex.KindTransport, Cause: err}
	}
	if resp.IsError() {
		return "", &translatex.ClientError{Status: resp.StatusCode(), Body: snippet(resp.String())}
	}

	var parsed struct {
		Detections []struct {
			Language string `json:"language"`
		} `json:"detections"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &translatex.ClientError{Status: resp.StatusCode(), Body: snippet(resp.String()), Cause: err}
	}

	lang := ""
	if len(parsed.Detections) > 0 {
		lang = strings.TrimSpace(parsed.Detections[0].Language)
	}

	_ = c.detectCache.Put(key, lang, c.detectTTL)
	return lang, nil
}

var sampleWhitespaceRe = regexp.MustCompile(`\s+`)

// textSample extracts up to detectSampleLimit characters of visible text:
// scripts and styles dropped, tags stripped, whitespace collapsed.
func textSample(htmlContent string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, template").Remove()

	text := sampleWhitespaceRe.ReplaceAllString(doc.Text(), " ")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) > detectSampleLimit {
		runes = runes[:detectSampleLimit]
	}
	return string(runes)
}

// spanishFunctionWords are common Spanish function words checked by the
// cheap lexical heuristic. Hits count distinct words present.
var spanishFunctionWords = []string{"el", "la", "de", "en", "y", "los", "las", "para", "con"}

var (
	langEsRe     = regexp.MustCompile(`(?i)<html[^>]+lang=["']?es`)
	ogLocaleEsRe = regexp.MustCompile(`(?i)property=["']og:locale["'][^>]+content=["']es_|content=["']es_[^>]+property=["']og:locale["']`)
)

// looksSpanish reports whether the HTML is structurally or lexically
// Spanish: an es lang attribute, an es_* og:locale, or at least four
// distinct Spanish function words in the visible text.
func looksSpanish(htmlContent string) bool {
	if htmlContent == "" {
		return false
	}

	if langEsRe.MatchString(htmlContent) {
		return true
	}
	if ogLocaleEsRe.MatchString(htmlContent) {
		return true
	}

	haystack := " " + strings.ToLower(sampleWhitespaceRe.ReplaceAllString(textSample(htmlContent), " ")) + " "
	hits := 0
	for _, word := range spanishFunctionWords {
		if strings.Contains(haystack, " "+word+" ") {
			hits++
		}
	}
	return hits >= 4
}
