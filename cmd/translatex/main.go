// Command translatex serves a site through the translation proxy and
// administers its page cache.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	translatex "github.com/translatex/translatex-go"
	"github.com/translatex/translatex-go/cache"
	"github.com/translatex/translatex-go/chunker"
	"github.com/translatex/translatex-go/client"
	"github.com/translatex/translatex-go/config"
	"github.com/translatex/translatex-go/pipeline"
	"github.com/translatex/translatex-go/router"
	"github.com/translatex/translatex-go/store"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = translatex.Version
	commit    = translatex.GitCommit
	buildDate = translatex.BuildDate
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("translatex", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Flags
	configPath := fs.String("config", "", "Path to YAML config file")
	listen := fs.String("listen", "", "Listen address (overrides config)")
	upstream := fs.String("upstream", "", "Upstream site URL (overrides config)")
	showVersion := fs.Bool("version", false, "Show version")
	jsonOutput := fs.Bool("json", false, "Output admin results as JSON")
	diffFile := fs.String("diff", "", "Compare an HTML file against a previous version and show changed strings")

	// Admin operations; any of these runs instead of the server.
	showStats := fs.Bool("stats", false, "Print page cache statistics")
	clearCache := fs.Bool("clear", false, "Delete every cached page")
	purge := fs.Bool("purge", false, "Delete cached pages without a source fingerprint")
	purgeUnused := fs.Int("purge-unused", 0, "Delete cached pages not visited in N days")
	deleteURL := fs.String("delete-url", "", "Delete one cached page (requires -lang)")
	deleteLang := fs.String("delete-lang", "", "Delete all cached pages and dictionary entries for a language")
	lang := fs.String("lang", "", "Language code for -delete-url")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", translatex.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	if *diffFile != "" {
		if fs.NArg() == 0 {
			return errors.New("-diff requires the new version as a file argument")
		}
		return runDiff(fs.Arg(0), *diffFile, stdout, *jsonOutput)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *upstream != "" {
		cfg.Server.Upstream = *upstream
	}

	admin := *showStats || *clearCache || *purge || *purgeUnused > 0 ||
		*deleteURL != "" || *deleteLang != ""
	if admin {
		return runAdmin(cfg, adminArgs{
			stats:       *showStats,
			clear:       *clearCache,
			purge:       *purge,
			purgeUnused: *purgeUnused,
			deleteURL:   *deleteURL,
			deleteLang:  *deleteLang,
			lang:        *lang,
			jsonOut:     *jsonOutput,
		}, stdout)
	}

	return runServe(cfg, stdout, stderr)
}

// runServe wires the full proxy and blocks until interrupted.
func runServe(cfg *config.Config, stdout, stderr io.Writer) error {
	if cfg.Server.Upstream == "" {
		return fmt.Errorf("upstream site URL required (-upstream or server.upstream in config)")
	}
	upstreamURL, err := url.Parse(cfg.Server.Upstream)
	if err != nil {
		return fmt.Errorf("parsing upstream URL: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))

	st, err := store.Open(cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	pages := store.NewPageCache(st, store.WithPageLogger(logger))
	dict := store.NewDictionary(st)

	// Failures live in Redis when configured so every instance sees the
	// same suppression window; otherwise in process memory.
	var failureCache cache.TTLCache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			URL:       cfg.Redis.URL,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rc.Close()
		failureCache = rc
	} else {
		failureCache = cache.NewInMemoryCache()
	}

	translator, err := buildTranslator(cfg, logger)
	if err != nil {
		return err
	}

	norm := translatex.NewURLNormalizer(cfg.Site.HomeURL, cfg.Site.IgnoredParams...)
	p := pipeline.New(
		translator,
		pages,
		dict,
		cache.NewFailureTracker(failureCache),
		norm,
		pipeline.WithLogger(logger),
	)

	rt := router.New(router.Config{
		DefaultLang: cfg.Site.DefaultLang,
		CookieName:  cfg.Cookie.Name,
		CookieTTL:   cfg.CookieTTL(),
	})

	proxy := httputil.NewSingleHostReverseProxy(upstreamURL)
	handler := pipeline.NewHandler(p, rt, proxy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	maint := pipeline.NewMaintenance(pages, cfg.MaintenanceInterval(), cfg.UnusedAfter(), logger)
	go maint.Run(ctx)

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Listen, "upstream", cfg.Server.Upstream)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	fmt.Fprintln(stdout, "bye")
	return nil
}

// buildTranslator picks the backend from config.
func buildTranslator(cfg *config.Config, logger *slog.Logger) (client.Translator, error) {
	if cfg.Backend == "openai" {
		key := cfg.OpenAI.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, errors.New("OpenAI API key required (openai.api_key or OPENAI_API_KEY env)")
		}

		var t client.Translator = client.NewOpenAITranslator(client.OpenAIConfig{
			APIKey: key,
			Model:  cfg.OpenAI.Model,
		})
		if cfg.OpenAI.RequestsPerMinute > 0 {
			t = client.NewRateLimitedTranslator(t, client.RateLimitConfig{
				RequestsPerMinute: cfg.OpenAI.RequestsPerMinute,
			})
		}
		return client.NewRetryableTranslator(t, client.DefaultRetryConfig()), nil
	}

	if cfg.API.TranslateURL == "" {
		return nil, errors.New("translate API URL required (api.translate_url in config)")
	}
	return client.New(client.Config{
		APIKey:           cfg.API.Key,
		TranslateURL:     cfg.API.TranslateURL,
		DetectURL:        cfg.API.DetectURL,
		TranslateTimeout: cfg.TranslateTimeout(),
		DetectTimeout:    cfg.DetectTimeout(),
		TextBatch:        cfg.API.TextBatch,
		Concurrency:      cfg.API.Concurrency,
		Logger:           logger,
	}), nil
}

type adminArgs struct {
	stats       bool
	clear       bool
	purge       bool
	purgeUnused int
	deleteURL   string
	deleteLang  string
	lang        string
	jsonOut     bool
}

// runAdmin performs one cache administration operation and exits.
func runAdmin(cfg *config.Config, args adminArgs, stdout io.Writer) error {
	st, err := store.Open(cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	pages := store.NewPageCache(st)
	ctx := context.Background()

	switch {
	case args.stats:
		return printStats(ctx, st, pages, stdout, args.jsonOut)

	case args.clear:
		n, err := pages.DeleteAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted %d cached pages\n", n)
		return nil

	case args.purge:
		n, err := pages.PurgeWithoutFingerprint(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Purged %d fingerprint-less pages\n", n)
		return nil

	case args.purgeUnused > 0:
		n, err := pages.PurgeUnused(ctx, time.Duration(args.purgeUnused)*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Purged %d pages unvisited for %d days\n", n, args.purgeUnused)
		return nil

	case args.deleteURL != "":
		lang := translatex.NormalizeLang(args.lang)
		if !translatex.IsSupportedLang(lang) {
			return fmt.Errorf("-delete-url requires a supported -lang, got %q", args.lang)
		}
		norm := translatex.NewURLNormalizer(cfg.Site.HomeURL, cfg.Site.IgnoredParams...)
		key := norm.CacheKey(args.deleteURL, lang)
		if err := pages.Delete(ctx, key); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted %s [%s]\n", args.deleteURL, lang)
		return nil

	case args.deleteLang != "":
		lang := translatex.NormalizeLang(args.deleteLang)
		if !translatex.IsSupportedLang(lang) {
			return fmt.Errorf("unsupported language %q", args.deleteLang)
		}
		n, err := pages.DeleteLanguage(ctx, lang)
		if err != nil {
			return err
		}
		m, err := store.NewDictionary(st).DeleteLanguage(ctx, lang)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted %d pages and %d dictionary entries for %s\n", n, m, lang)
		return nil
	}

	return errors.New("no admin operation selected")
}

// runDiff previews what a content edit will cost in fresh translations:
// the unique translatable strings of two page versions are compared, and
// only the added strings need new dictionary entries.
func runDiff(newPath, oldPath string, stdout io.Writer, jsonOut bool) error {
	newTexts, err := extractTexts(newPath)
	if err != nil {
		return err
	}
	oldTexts, err := extractTexts(oldPath)
	if err != nil {
		return err
	}

	diff := translatex.DiffTexts(oldTexts, newTexts)
	stats := diff.Stats()

	if jsonOut {
		out := struct {
			InputFile    string   `json:"input_file"`
			PreviousFile string   `json:"previous_file"`
			Unchanged    int      `json:"unchanged"`
			Added        []string `json:"added,omitempty"`
			Removed      []string `json:"removed,omitempty"`
		}{
			InputFile:    filepath.Base(newPath),
			PreviousFile: filepath.Base(oldPath),
			Unchanged:    stats.Unchanged,
			Added:        diff.Added,
			Removed:      diff.Removed,
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(stdout, "Diff: %s vs %s\n\n", filepath.Base(newPath), filepath.Base(oldPath))
	fmt.Fprintf(stdout, "Summary:\n")
	fmt.Fprintf(stdout, "  Unchanged: %d\n", stats.Unchanged)
	fmt.Fprintf(stdout, "  Added:     %d\n", stats.Added)
	fmt.Fprintf(stdout, "  Removed:   %d\n", stats.Removed)
	fmt.Fprintf(stdout, "\n")

	if !diff.HasChanges() {
		fmt.Fprintf(stdout, "No changes detected. All translations are up to date.\n")
		return nil
	}

	needs := diff.NeedsTranslation()
	fmt.Fprintf(stdout, "Needs translation: %d strings\n\n", len(needs))
	if len(diff.Added) > 0 {
		fmt.Fprintf(stdout, "Added:\n")
		for _, text := range diff.Added {
			fmt.Fprintf(stdout, "  + %q\n", truncate(text, 60))
		}
	}
	if len(diff.Removed) > 0 {
		fmt.Fprintf(stdout, "Removed:\n")
		for _, text := range diff.Removed {
			fmt.Fprintf(stdout, "  - %q\n", truncate(text, 60))
		}
	}
	return nil
}

// extractTexts returns the deduplicated translatable strings of an HTML file.
func extractTexts(path string) ([]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	payload, err := chunker.New().BuildPayload(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if payload == nil {
		return nil, nil
	}
	return payload.Texts, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func printStats(ctx context.Context, st *store.Store, pages *store.PageCache, stdout io.Writer, jsonOut bool) error {
	stats, err := pages.Stats(ctx)
	if err != nil {
		return err
	}
	dictCount, err := store.NewDictionary(st).Count(ctx)
	if err != nil {
		return err
	}

	if jsonOut {
		out := struct {
			Pages         int64            `json:"pages"`
			TotalHits     int64            `json:"total_hits"`
			LastGenerated int64            `json:"last_generated"`
			ByLanguage    map[string]int64 `json:"by_language"`
			Dictionary    int64            `json:"dictionary_entries"`
		}{
			Pages:         stats.Entries,
			TotalHits:     stats.TotalHits,
			LastGenerated: stats.LastGenerated,
			ByLanguage:    stats.ByLanguage,
			Dictionary:    dictCount,
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(stdout, "Cached pages:       %d\n", stats.Entries)
	fmt.Fprintf(stdout, "Accumulated hits:   %d\n", stats.TotalHits)
	if stats.LastGenerated > 0 {
		fmt.Fprintf(stdout, "Newest entry:       %s\n",
			time.Unix(stats.LastGenerated, 0).UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(stdout, "Dictionary entries: %d\n", dictCount)

	if len(stats.ByLanguage) > 0 {
		langs := make([]string, 0, len(stats.ByLanguage))
		for l := range stats.ByLanguage {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		fmt.Fprintf(stdout, "\nBy language:\n")
		for _, l := range langs {
			fmt.Fprintf(stdout, "  %-6s %d\n", l, stats.ByLanguage[l])
		}
	}
	return nil
}
