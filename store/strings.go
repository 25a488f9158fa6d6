package store

import (
	"context"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	translatex "github.com/translatex/translatex-go"
)

// dictionaryBatch caps how many rows one dictionary statement touches.
const dictionaryBatch = 90

// Dictionary is the persistent store of machine-translated strings,
// unique per (lang, text_hash). Identical strings across pages are
// translated once and reused everywhere.
type Dictionary struct {
	store  *Store
	logger *slog.Logger
	now    func() time.Time
}

// NewDictionary creates a Dictionary over the store.
func NewDictionary(store *Store) *Dictionary {
	return &Dictionary{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// GetTranslations looks up translations for the given content hashes in
// lang. The result maps hash to translated text and only contains found
// entries; lookups run in sub-batches to keep statements bounded.
func (d *Dictionary) GetTranslations(ctx context.Context, lang string, hashes []string) (map[string]string, error) {
	found := make(map[string]string, len(hashes))

	for start := 0; start < len(hashes); start += dictionaryBatch {
		end := start + dictionaryBatch
		if end > len(hashes) {
			end = len(hashes)
		}

		query, args, err := d.store.sb.
			Select("text_hash", "translated").
			From("strings").
			Where(sq.Eq{"lang": lang, "text_hash": hashes[start:end]}).
			ToSql()
		if err != nil {
			return nil, &translatex.StoreError{Op: "dictionary get", Cause: err}
		}

		rows, err := d.store.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, &translatex.StoreError{Op: "dictionary get", Cause: err}
		}
		for rows.Next() {
			var hash, translated string
			if err := rows.Scan(&hash, &translated); err != nil {
				rows.Close()
				return nil, &translatex.StoreError{Op: "dictionary get", Cause: err}
			}
			found[hash] = translated
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, &translatex.StoreError{Op: "dictionary get", Cause: err}
		}
		rows.Close()
	}

	return found, nil
}

// SaveTranslations upserts freshly translated strings for lang, in
// sub-batches inside one transaction. A re-translated string overwrites
// its previous text and bumps updated_at; created_at stays at the first
// insertion. Entries without a status are stored as machine translations.
func (d *Dictionary) SaveTranslations(ctx context.Context, lang string, entries []translatex.StringEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &translatex.StoreError{Op: "dictionary save", Cause: err}
	}
	defer tx.Rollback()

	now := d.now().Unix()

	for start := 0; start < len(entries); start += dictionaryBatch {
		end := start + dictionaryBatch
		if end > len(entries) {
			end = len(entries)
		}

		insert := d.store.sb.
			Insert("strings").
			Columns("lang", "text_hash", "original", "translated", "status", "created_at", "updated_at").
			Suffix("ON CONFLICT(lang, text_hash) DO UPDATE SET " +
				"original=excluded.original, translated=excluded.translated, " +
				"status=excluded.status, updated_at=excluded.updated_at")
		for _, entry := range entries[start:end] {
			status := entry.Status
			if status == "" {
				status = translatex.StringStatusMachine
			}
			insert = insert.Values(lang, entry.Hash, entry.Original, entry.Translated, status, now, now)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return &translatex.StoreError{Op: "dictionary save", Cause: err}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return &translatex.StoreError{Op: "dictionary save", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &translatex.StoreError{Op: "dictionary save", Cause: err}
	}
	return nil
}

// DeleteLanguage removes every dictionary entry for one language.
func (d *Dictionary) DeleteLanguage(ctx context.Context, lang string) (int64, error) {
	query, args, err := d.store.sb.Delete("strings").Where(sq.Eq{"lang": lang}).ToSql()
	if err != nil {
		return 0, &translatex.StoreError{Op: "dictionary delete language", Cause: err}
	}
	res, err := d.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &translatex.StoreError{Op: "dictionary delete language", Cause: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of dictionary entries, across all languages.
func (d *Dictionary) Count(ctx context.Context) (int64, error) {
	query, args, err := d.store.sb.Select("COUNT(*)").From("strings").ToSql()
	if err != nil {
		return 0, &translatex.StoreError{Op: "dictionary count", Cause: err}
	}
	var n int64
	if err := d.store.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &translatex.StoreError{Op: "dictionary count", Cause: err}
	}
	return n, nil
}
