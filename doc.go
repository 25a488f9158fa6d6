// Package translatex implements a server-side, on-the-fly HTML translation
// pipeline: given a rendered page and a target language it produces a
// translated page while preserving markup, reusing previously translated
// strings, and caching whole pages keyed by normalized URL, language and
// content fingerprint.
//
// The root package holds the shared vocabulary: chunk payloads, persistent
// entry types, the language table, hashing, URL normalization and content
// fingerprinting. The moving parts live in subpackages:
//
//	chunker  — HTML tokenizer producing deduplicated translatable chunks
//	client   — remote translate/detect API client with adaptive batching
//	cache    — TTL caches (memory, Redis) and the failure tracker
//	store    — persistent page cache and string dictionary (SQL)
//	router   — locale-prefixed URL routing and canonicalization
//	pipeline — the per-request orchestrator and HTTP middleware
//
// Basic usage:
//
//	db, _ := store.Open("translatex.db")
//	api := client.New(client.Config{APIKey: key, TranslateURL: endpoint})
//	norm := translatex.NewURLNormalizer("https://example.com")
//
//	p := pipeline.New(api,
//	    store.NewPageCache(db),
//	    store.NewDictionary(db),
//	    cache.NewFailureTracker(cache.NewInMemoryCache()),
//	    norm,
//	)
//	rt := router.New(router.Config{DefaultLang: "en"})
//	http.Handle("/", pipeline.NewHandler(p, rt, upstream))
package translatex
