package store

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	translatex "github.com/translatex/translatex-go"
)

// defaultCoalesceInterval spaces out access-accounting writes per entry.
const defaultCoalesceInterval = 15 * time.Minute

// PageCache is the persistent cache of fully translated pages, keyed by
// the 32-hex hash over (lang, normalized URL). An in-memory map fronts
// the SQL table; hit counting is write-coalesced so a hot page costs one
// UPDATE per interval instead of one per view.
type PageCache struct {
	store    *Store
	logger   *slog.Logger
	coalesce time.Duration
	now      func() time.Time

	mu          sync.Mutex
	mem         map[string]*translatex.PageEntry
	lastPersist map[string]int64
}

// PageCacheOption configures a PageCache.
type PageCacheOption func(*PageCache)

// WithPageLogger sets the logger.
func WithPageLogger(logger *slog.Logger) PageCacheOption {
	return func(c *PageCache) { c.logger = logger }
}

// WithCoalesceInterval overrides the access-write coalescing interval.
func WithCoalesceInterval(d time.Duration) PageCacheOption {
	return func(c *PageCache) { c.coalesce = d }
}

// NewPageCache creates a PageCache over the store.
func NewPageCache(store *Store, opts ...PageCacheOption) *PageCache {
	c := &PageCache{
		store:       store,
		logger:      slog.Default(),
		coalesce:    defaultCoalesceInterval,
		now:         time.Now,
		mem:         make(map[string]*translatex.PageEntry),
		lastPersist: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var pageColumns = []string{
	"id", "url_hash", "url", "lang", "content",
	"generated_at", "last_accessed", "hits", "source_hash",
}

// Get returns the cached entry for key, or (nil, nil) on a miss. A hit
// bumps the hit counter and last-access time; the bump is persisted at
// most once per coalescing interval, except the first load from SQL,
// which persists immediately.
func (c *PageCache) Get(ctx context.Context, key string) (*translatex.PageEntry, error) {
	now := c.now().Unix()

	c.mu.Lock()
	if entry, ok := c.mem[key]; ok {
		entry.Hits++
		entry.LastAccessed = now
		out := *entry
		persist := now-c.lastPersist[key] >= int64(c.coalesce/time.Second)
		if persist {
			c.lastPersist[key] = now
		}
		c.mu.Unlock()

		if persist {
			c.persistAccess(ctx, &out)
		}
		return &out, nil
	}
	c.mu.Unlock()

	entry, err := c.load(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}

	entry.Hits++
	entry.LastAccessed = now

	c.mu.Lock()
	c.mem[key] = entry
	c.lastPersist[key] = now
	out := *entry
	c.mu.Unlock()

	c.persistAccess(ctx, &out)
	return &out, nil
}

func (c *PageCache) load(ctx context.Context, key string) (*translatex.PageEntry, error) {
	query, args, err := c.store.sb.
		Select(pageColumns...).
		From("pages").
		Where(sq.Eq{"url_hash": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, &translatex.StoreError{Op: "page get", Cause: err}
	}

	var entry translatex.PageEntry
	row := c.store.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(
		&entry.ID, &entry.URLHash, &entry.URL, &entry.Lang, &entry.Content,
		&entry.GeneratedAt, &entry.LastAccessed, &entry.Hits, &entry.SourceHash,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &translatex.StoreError{Op: "page get", Cause: err}
	}
	return &entry, nil
}

func (c *PageCache) persistAccess(ctx context.Context, entry *translatex.PageEntry) {
	query, args, err := c.store.sb.
		Update("pages").
		Set("last_accessed", entry.LastAccessed).
		Set("hits", entry.Hits).
		Where(sq.Eq{"url_hash": entry.URLHash}).
		ToSql()
	if err == nil {
		_, err = c.store.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		// Losing a hit count is not worth failing a page view.
		c.logger.Warn("failed to persist page access", "key", entry.URLHash, "error", err)
	}
}

// Save inserts or replaces the entry for entry.URLHash. Generation time
// and last access are stamped now and the hit counter restarts at 1; a
// regenerated page earns its popularity again.
func (c *PageCache) Save(ctx context.Context, entry *translatex.PageEntry) error {
	now := c.now().Unix()
	entry.GeneratedAt = now
	entry.LastAccessed = now
	entry.Hits = 1

	query, args, err := c.store.sb.
		Insert("pages").
		Columns("url_hash", "url", "lang", "content", "generated_at", "last_accessed", "hits", "source_hash").
		Values(entry.URLHash, entry.URL, entry.Lang, entry.Content, entry.GeneratedAt, entry.LastAccessed, entry.Hits, entry.SourceHash).
		Suffix(`ON CONFLICT(url_hash) DO UPDATE SET
			url=excluded.url, lang=excluded.lang, content=excluded.content,
			generated_at=excluded.generated_at, last_accessed=excluded.last_accessed,
			hits=excluded.hits, source_hash=excluded.source_hash`).
		ToSql()
	if err != nil {
		return &translatex.StoreError{Op: "page save", Cause: err}
	}
	if _, err := c.store.db.ExecContext(ctx, query, args...); err != nil {
		return &translatex.StoreError{Op: "page save", Cause: err}
	}

	stored := *entry
	c.mu.Lock()
	c.mem[entry.URLHash] = &stored
	c.lastPersist[entry.URLHash] = now
	c.mu.Unlock()
	return nil
}

// Delete removes one entry.
func (c *PageCache) Delete(ctx context.Context, key string) error {
	query, args, err := c.store.sb.Delete("pages").Where(sq.Eq{"url_hash": key}).ToSql()
	if err != nil {
		return &translatex.StoreError{Op: "page delete", Cause: err}
	}
	if _, err := c.store.db.ExecContext(ctx, query, args...); err != nil {
		return &translatex.StoreError{Op: "page delete", Cause: err}
	}

	c.mu.Lock()
	delete(c.mem, key)
	delete(c.lastPersist, key)
	c.mu.Unlock()
	return nil
}

// DeleteLanguage removes every entry for one language and reports how
// many rows went away.
func (c *PageCache) DeleteLanguage(ctx context.Context, lang string) (int64, error) {
	query, args, err := c.store.sb.Delete("pages").Where(sq.Eq{"lang": lang}).ToSql()
	if err != nil {
		return 0, &translatex.StoreError{Op: "page delete language", Cause: err}
	}
	res, err := c.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &translatex.StoreError{Op: "page delete language", Cause: err}
	}
	n, _ := res.RowsAffected()

	c.mu.Lock()
	for key, entry := range c.mem {
		if entry.Lang == lang {
			delete(c.mem, key)
			delete(c.lastPersist, key)
		}
	}
	c.mu.Unlock()
	return n, nil
}

// DeleteAll empties the page cache.
func (c *PageCache) DeleteAll(ctx context.Context) (int64, error) {
	query, args, err := c.store.sb.Delete("pages").ToSql()
	if err != nil {
		return 0, &translatex.StoreError{Op: "page delete all", Cause: err}
	}
	res, err := c.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &translatex.StoreError{Op: "page delete all", Cause: err}
	}
	n, _ := res.RowsAffected()

	c.mu.Lock()
	c.mem = make(map[string]*translatex.PageEntry)
	c.lastPersist = make(map[string]int64)
	c.mu.Unlock()
	return n, nil
}

// PurgeWithoutFingerprint drops entries saved before fingerprinting
// existed. They can never pass a freshness check, so they only take up
// space until a visitor happens to regenerate them.
func (c *PageCache) PurgeWithoutFingerprint(ctx context.Context) (int64, error) {
	query, args, err := c.store.sb.Delete("pages").Where(sq.Eq{"source_hash": ""}).ToSql()
	if err != nil {
		return 0, &translatex.StoreError{Op: "page purge", Cause: err}
	}
	res, err := c.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &translatex.StoreError{Op: "page purge", Cause: err}
	}
	n, _ := res.RowsAffected()

	c.mu.Lock()
	for key, entry := range c.mem {
		if entry.SourceHash == "" {
			delete(c.mem, key)
			delete(c.lastPersist, key)
		}
	}
	c.mu.Unlock()
	return n, nil
}

// PurgeUnused drops entries not served within olderThan.
func (c *PageCache) PurgeUnused(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := c.now().Add(-olderThan).Unix()

	query, args, err := c.store.sb.Delete("pages").Where(sq.Lt{"last_accessed": cutoff}).ToSql()
	if err != nil {
		return 0, &translatex.StoreError{Op: "page purge unused", Cause: err}
	}
	res, err := c.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &translatex.StoreError{Op: "page purge unused", Cause: err}
	}
	n, _ := res.RowsAffected()

	c.mu.Lock()
	for key, entry := range c.mem {
		if entry.LastAccessed < cutoff {
			delete(c.mem, key)
			delete(c.lastPersist, key)
		}
	}
	c.mu.Unlock()
	return n, nil
}

// CacheStats summarizes the page cache for the admin surface.
type CacheStats struct {
	Entries       int64
	TotalHits     int64
	LastGenerated int64 // unix seconds of the newest entry, 0 when empty
	ByLanguage    map[string]int64
}

// Stats reports entry count, accumulated hits, newest generation time and
// a per-language breakdown.
func (c *PageCache) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{ByLanguage: make(map[string]int64)}

	query, args, err := c.store.sb.
		Select("COUNT(*)", "COALESCE(SUM(hits), 0)", "COALESCE(MAX(generated_at), 0)").
		From("pages").
		ToSql()
	if err != nil {
		return nil, &translatex.StoreError{Op: "page stats", Cause: err}
	}
	row := c.store.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&stats.Entries, &stats.TotalHits, &stats.LastGenerated); err != nil {
		return nil, &translatex.StoreError{Op: "page stats", Cause: err}
	}

	query, args, err = c.store.sb.
		Select("lang", "COUNT(*)").
		From("pages").
		GroupBy("lang").
		ToSql()
	if err != nil {
		return nil, &translatex.StoreError{Op: "page stats", Cause: err}
	}
	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &translatex.StoreError{Op: "page stats", Cause: err}
	}
	defer rows.Close()

	for rows.Next() {
		var lang string
		var count int64
		if err := rows.Scan(&lang, &count); err != nil {
			return nil, &translatex.StoreError{Op: "page stats", Cause: err}
		}
		stats.ByLanguage[lang] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &translatex.StoreError{Op: "page stats", Cause: err}
	}

	return stats, nil
}
