package translatex

import "time"

// ChunkKind distinguishes text-node chunks from attribute-value chunks.
type ChunkKind string

const (
	// ChunkText is a chunk extracted from an HTML text node.
	ChunkText ChunkKind = "text"
	// ChunkAttr is a chunk extracted from a translatable attribute value.
	ChunkAttr ChunkKind = "attr"
)

// Chunk is one translatable unit extracted from HTML and replaced in the
// tokenized skeleton by Token.
type Chunk struct {
	Token     string    // placeholder token, @@TRANSLATEX_CHUNK_NNNNN@@
	Kind      ChunkKind // text or attr, controls escaping on reassembly
	TextIndex int       // index into ChunkPayload.Texts (deduplicated)
	TextHash  string    // content hash of the original string
}

// ChunkPayload is the per-request result of tokenizing an HTML document.
// Two chunks carrying byte-identical original text share one TextIndex, so
// Texts is the minimal set of strings that has to be translated.
type ChunkPayload struct {
	TokenizedHTML string
	Chunks        []Chunk
	Texts         []string
	Stats         ChunkStats
}

// ChunkStats summarizes a tokenization pass, mainly for logging.
type ChunkStats struct {
	ChunkCount  int
	TextChunks  int
	AttrChunks  int
	TotalChars  int
	MaxChars    int
	UniqueTexts int
	Deduped     int
}

// PageEntry is one row of the persistent page cache, unique per
// (URLHash, Lang).
type PageEntry struct {
	ID           int64
	URLHash      string // 32-hex key over normalized URL + language
	URL          string // normalized, original case
	Lang         string
	Content      string // translated HTML
	GeneratedAt  int64  // unix seconds
	LastAccessed int64  // unix seconds
	Hits         int64
	SourceHash   string // 64-hex fingerprint of the pre-translation HTML
}

// Dictionary entry provenance. Machine entries are overwritten freely on
// re-translation; human entries exist so curated corrections survive.
const (
	StringStatusMachine = "machine"
	StringStatusHuman   = "human"
)

// StringEntry is one translated string destined for the dictionary.
type StringEntry struct {
	Hash       string // content hash of the exact original string
	Original   string
	Translated string
	Status     string // StringStatusMachine when empty
}

// FailureRecord is a short-lived negative-cache entry suppressing repeated
// remote calls for a cache key after a recent failure.
type FailureRecord struct {
	Status string // HTTP status code as string, or a failure kind
	Time   int64  // unix seconds when recorded
	Body   string // response snippet for diagnostics
	TTL    time.Duration
}
