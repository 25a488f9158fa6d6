// Package pipeline orchestrates per-request translation: failure
// fast-fail, fingerprinted cache lookups, chunk translation through the
// dictionary, and the fallback chain down to the original HTML.
package pipeline

import (
	"context"
	"log/slog"

	translatex "github.com/translatex/translatex-go"
	"github.com/translatex/translatex-go/cache"
	"github.com/translatex/translatex-go/chunker"
	"github.com/translatex/translatex-go/client"
	"github.com/translatex/translatex-go/store"
)

// Source labels where a served page came from.
type Source string

const (
	SourceCache      Source = "cache"       // fingerprint-matched page cache hit
	SourceChunks     Source = "chunks"      // fresh chunk translation
	SourceFullHTML   Source = "full-html"   // fresh whole-document translation
	SourceStaleCache Source = "stale-cache" // translation failed, matching cache served
	SourceOriginal   Source = "original"    // translation failed or suppressed, untranslated
)

// Request is one page to translate.
type Request struct {
	URL          string // full request URL, any form; normalized internally
	Lang         string // supported target language, never the default
	HTML         string // rendered original page
	ForceRefresh bool   // bypass failure window and cache
}

// Result is the served page plus provenance.
type Result struct {
	HTML     string
	Source   Source
	CacheKey string
	Err      error // the translation failure behind a stale-cache/original result
}

// Pipeline is the per-request orchestrator. Safe for concurrent use; the
// page cache, dictionary and failure tracker are shared across requests,
// and concurrent regenerations of one page are an accepted benign race
// (both produce the same fingerprinted content, last writer wins).
type Pipeline struct {
	chunker    *chunker.Chunker
	translator client.Translator
	pages      *store.PageCache
	dict       *store.Dictionary
	failures   *cache.FailureTracker
	norm       *translatex.URLNormalizer
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New wires up a Pipeline.
func New(translator client.Translator, pages *store.PageCache, dict *store.Dictionary, failures *cache.FailureTracker, norm *translatex.URLNormalizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		chunker:    chunker.New(),
		translator: translator,
		pages:      pages,
		dict:       dict,
		failures:   failures,
		norm:       norm,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Translate runs the request through the state machine. It always
// returns a page to serve; translation is best effort and the worst case
// is the untranslated original.
func (p *Pipeline) Translate(ctx context.Context, req Request) Result {
	key := p.norm.CacheKey(req.URL, req.Lang)
	fingerprint := translatex.ComputeSourceHash(req.HTML)

	// Fail open inside a failure window: no cache lookups, no remote calls.
	if !req.ForceRefresh && p.failures.ShouldSkip(key) {
		p.logger.Debug("inside failure window, serving original", "key", key, "url", req.URL)
		return Result{HTML: req.HTML, Source: SourceOriginal, CacheKey: key}
	}

	cached, err := p.pages.Get(ctx, key)
	if err != nil {
		// A broken store read must not break the page view, but it is
		// never silent.
		p.logger.Error("page cache read failed", "key", key, "error", err)
		cached = nil
	}

	if cached != nil && !req.ForceRefresh && translatex.MatchesSourceHash(cached, fingerprint) {
		return Result{HTML: cached.Content, Source: SourceCache, CacheKey: key}
	}

	prepared, placeholders := translatex.PrepareHTML(req.HTML)

	translated, source, err := p.translateFresh(ctx, prepared, req.Lang)
	if err != nil {
		status, body := translatex.FailureLabel(err)
		record := p.failures.Register(key, status, body)
		p.logger.Warn("translation failed",
			"key", key, "url", req.URL, "lang", req.Lang,
			"status", status, "retry_after", record.TTL)

		// Last known-good content only counts while its fingerprint
		// still matches; anything older would show outdated text.
		if cached != nil && translatex.MatchesSourceHash(cached, fingerprint) {
			return Result{HTML: cached.Content, Source: SourceStaleCache, CacheKey: key, Err: err}
		}
		return Result{HTML: req.HTML, Source: SourceOriginal, CacheKey: key, Err: err}
	}

	final := translatex.RestorePlaceholders(translated, placeholders)

	entry := &translatex.PageEntry{
		URLHash:    key,
		URL:        p.norm.Normalize(req.URL),
		Lang:       req.Lang,
		Content:    final,
		SourceHash: fingerprint,
	}
	if err := p.pages.Save(ctx, entry); err != nil {
		// Losing the write costs one re-translation on the next visit.
		p.logger.Error("page cache write failed", "key", key, "error", err)
	}
	p.failures.Clear(key)

	return Result{HTML: final, Source: source, CacheKey: key}
}

// translateFresh translates via chunks, falling back to a whole-document
// request when chunking is impossible or reassembly breaks. Fallback is
// suppressed for failures a full-HTML call would only repeat.
func (p *Pipeline) translateFresh(ctx context.Context, prepared, lang string) (string, Source, error) {
	payload, err := p.chunker.BuildPayload(prepared)
	if err != nil {
		return "", SourceOriginal, err
	}
	if payload == nil {
		// Nothing chunkable: parse failure or a text-free document.
		out, err := p.translator.TranslateHTML(ctx, prepared, lang)
		if err != nil {
			return "", SourceOriginal, err
		}
		return out, SourceFullHTML, nil
	}

	out, err := p.translateChunks(ctx, payload, prepared, lang)
	if err != nil {
		if !client.ShouldFallbackToHTML(err) {
			return "", SourceOriginal, err
		}
		p.logger.Debug("chunk translation failed, trying full HTML", "error", err)
		full, fullErr := p.translator.TranslateHTML(ctx, prepared, lang)
		if fullErr != nil {
			return "", SourceOriginal, fullErr
		}
		return full, SourceFullHTML, nil
	}
	return out, SourceChunks, nil
}

// translateChunks resolves every unique text through the dictionary,
// translates the misses remotely, banks the fresh pairs back into the
// dictionary and reassembles the page.
func (p *Pipeline) translateChunks(ctx context.Context, payload *translatex.ChunkPayload, prepared, lang string) (string, error) {
	hashes := textHashes(payload)

	known, err := p.dict.GetTranslations(ctx, lang, hashes)
	if err != nil {
		// Treat a failed lookup as an empty dictionary; the strings get
		// re-translated, which is the acceptable degradation.
		p.logger.Error("dictionary lookup failed", "lang", lang, "error", err)
		known = map[string]string{}
	}

	var missingIdx []int
	var missingTexts []string
	for i, text := range payload.Texts {
		if _, ok := known[hashes[i]]; !ok {
			missingIdx = append(missingIdx, i)
			missingTexts = append(missingTexts, text)
		}
	}

	translations := make([]string, len(payload.Texts))
	for i := range payload.Texts {
		translations[i] = known[hashes[i]]
	}

	if len(missingTexts) > 0 {
		fresh, err := p.translator.TranslateTexts(ctx, missingTexts, lang, prepared)
		if err != nil {
			return "", err
		}
		if len(fresh) != len(missingTexts) {
			return "", &translatex.CountMismatchError{Expected: len(missingTexts), Got: len(fresh)}
		}

		entries := make([]translatex.StringEntry, len(missingIdx))
		for j, i := range missingIdx {
			translations[i] = fresh[j]
			entries[j] = translatex.StringEntry{
				Hash:       hashes[i],
				Original:   payload.Texts[i],
				Translated: fresh[j],
			}
		}
		if err := p.dict.SaveTranslations(ctx, lang, entries); err != nil {
			p.logger.Error("dictionary write failed", "lang", lang, "error", err)
		}

		p.logger.Info("translated chunk batch",
			"lang", lang, "unique", len(payload.Texts),
			"dictionary_hits", len(payload.Texts)-len(missingTexts),
			"translated", len(missingTexts))
	}

	assembled, err := p.chunker.ApplyTranslations(payload, translations)
	if err != nil {
		return "", err
	}
	return client.PostprocessHTML(assembled, lang), nil
}

// textHashes maps payload.Texts indices to the content hashes recorded
// on the chunks, keeping any collision-guard synthetic keys.
func textHashes(payload *translatex.ChunkPayload) []string {
	hashes := make([]string, len(payload.Texts))
	for _, chunk := range payload.Chunks {
		if chunk.TextIndex >= 0 && chunk.TextIndex < len(hashes) {
			hashes[chunk.TextIndex] = chunk.TextHash
		}
	}
	return hashes
}
