// Package chunker tokenizes HTML into addressable, deduplicated
// translatable chunks and reassembles translated documents.
package chunker

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	translatex "github.com/translatex/translatex-go"
)

// skipTags are elements whose subtrees are never translated.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"template": true, "textarea": true, "code": true, "pre": true,
	"kbd": true, "samp": true, "svg": true, "math": true,
}

// translatableAttrs is the fixed allow-list of attributes whose values are
// extracted from any element.
var translatableAttrs = []string{"title", "alt", "placeholder", "aria-label", "aria-placeholder"}

// Chunker extracts translatable units from HTML, replacing each in place
// with a unique token, and later substitutes translations back in.
type Chunker struct {
	hashText func(string) string
}

// New returns a Chunker with the default skip and attribute lists.
func New() *Chunker {
	return &Chunker{hashText: translatex.HashText}
}

type extraction struct {
	chunks  []translatex.Chunk
	texts   []string
	counter int
	stats   translatex.ChunkStats
	// pending original texts per chunk, resolved to indices after the walk
	originals []string
}

// BuildPayload parses html and extracts every translatable text run and
// attribute value, mutating the tree so each unit is replaced by a token
// matching @@TRANSLATEX_CHUNK_NNNNN@@. Returns (nil, nil) when the
// document yields no chunks or cannot be parsed; callers treat a nil
// payload as "translate the whole HTML instead".
func (c *Chunker) BuildPayload(content string) (*translatex.ChunkPayload, error) {
	if content == "" {
		return nil, nil
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		// Lenient parser: a hard error means the input is hopeless for
		// chunking, not for full-HTML translation.
		return nil, nil
	}

	ex := &extraction{}
	c.walk(doc, ex)

	if len(ex.originals) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, &translatex.ChunkError{Message: "failed to serialize tokenized HTML", Cause: err}
	}

	payload := &translatex.ChunkPayload{
		TokenizedHTML: buf.String(),
		Chunks:        ex.chunks,
		Stats:         ex.stats,
	}
	c.dedupe(payload, ex.originals)

	payload.Stats.UniqueTexts = len(payload.Texts)
	payload.Stats.Deduped = payload.Stats.ChunkCount - payload.Stats.UniqueTexts
	return payload, nil
}

// walk visits nodes in pre-order. Children are snapshotted before
// recursion because chunk extraction mutates text nodes in place.
func (c *Chunker) walk(n *html.Node, ex *extraction) {
	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)
		if skipTags[tag] {
			return
		}
		for _, attr := range n.Attr {
			if attr.Key == "data-no-translate" {
				return
			}
		}
		c.extractAttrs(n, tag, ex)
	}

	if n.Type == html.TextNode {
		c.extractText(n, ex)
	}

	var children []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		children = append(children, child)
	}
	for _, child := range children {
		c.walk(child, ex)
	}
}

func (c *Chunker) extractAttrs(n *html.Node, tag string, ex *extraction) {
	attrs := translatableAttrs
	if tag == "meta" {
		if !metaIsTranslatable(n) {
			return
		}
		attrs = []string{"content"}
	}

	for i := range n.Attr {
		key := strings.ToLower(n.Attr[i].Key)
		if !containsAttr(attrs, key) {
			continue
		}
		value := n.Attr[i].Val
		if strings.TrimSpace(value) == "" {
			continue
		}

		token := ex.nextToken()
		ex.record(translatex.ChunkAttr, value)
		ex.chunks = append(ex.chunks, translatex.Chunk{Token: token, Kind: translatex.ChunkAttr})
		ex.originals = append(ex.originals, value)
		n.Attr[i].Val = token
	}
}

func (c *Chunker) extractText(n *html.Node, ex *extraction) {
	text := n.Data
	core := strings.TrimFunc(text, unicode.IsSpace)
	if core == "" {
		return
	}

	// Leading/trailing whitespace stays outside the token untouched.
	withoutLead := strings.TrimLeftFunc(text, unicode.IsSpace)
	prefix := text[:len(text)-len(withoutLead)]
	suffix := withoutLead[len(core):]

	token := ex.nextToken()
	ex.record(translatex.ChunkText, core)
	ex.chunks = append(ex.chunks, translatex.Chunk{Token: token, Kind: translatex.ChunkText})
	ex.originals = append(ex.originals, core)
	n.Data = prefix + token + suffix
}

// metaIsTranslatable restricts meta extraction to descriptive tags: the
// name or property must mention description, title or og:locale.
func metaIsTranslatable(n *html.Node) bool {
	var nameAttr string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			nameAttr += " " + strings.ToLower(attr.Val)
		}
	}
	if strings.TrimSpace(nameAttr) == "" {
		return false
	}
	return strings.Contains(nameAttr, "description") ||
		strings.Contains(nameAttr, "title") ||
		strings.Contains(nameAttr, "og:locale")
}

// dedupe assigns TextIndex/TextHash to every chunk so byte-identical
// originals share one entry in Texts. Hash collisions between different
// strings are resolved by walking synthetic keys in a fixed order, so
// every occurrence of one string converges on the same key and index;
// duplicate detection always compares the actual strings, never the
// hash alone.
func (c *Chunker) dedupe(payload *translatex.ChunkPayload, originals []string) {
	type uniqueEntry struct {
		index int
		text  string
	}
	lookup := make(map[string]uniqueEntry)

	for i, text := range originals {
		hash := c.hashText(text)
		entry, seen := lookup[hash]
		for k := 0; seen && entry.text != text; k++ {
			hash = translatex.HashTextIndexed(text, k)
			entry, seen = lookup[hash]
		}
		if !seen {
			entry = uniqueEntry{index: len(payload.Texts), text: text}
			lookup[hash] = entry
			payload.Texts = append(payload.Texts, text)
		}
		payload.Chunks[i].TextIndex = entry.index
		payload.Chunks[i].TextHash = hash
	}
}

// ApplyTranslations substitutes translated strings into the tokenized HTML.
// translations must index exactly like payload.Texts; any length mismatch
// is a ReassemblyError. Text tokens are HTML-escaped, attribute tokens are
// attribute-escaped. The result contains no chunk tokens.
func (c *Chunker) ApplyTranslations(payload *translatex.ChunkPayload, translations []string) (string, error) {
	if payload == nil || payload.TokenizedHTML == "" || len(payload.Chunks) == 0 {
		return "", &translatex.ReassemblyError{Message: "empty payload"}
	}
	if len(translations) != len(payload.Texts) {
		return "", &translatex.ReassemblyError{
			Message: fmt.Sprintf("expected %d translations, got %d", len(payload.Texts), len(translations)),
		}
	}

	pairs := make([]string, 0, len(payload.Chunks)*2)
	for _, chunk := range payload.Chunks {
		if chunk.TextIndex < 0 || chunk.TextIndex >= len(translations) {
			return "", &translatex.ReassemblyError{
				Message: fmt.Sprintf("chunk %s has out-of-range text index %d", chunk.Token, chunk.TextIndex),
			}
		}
		translated := translations[chunk.TextIndex]
		if chunk.Kind == translatex.ChunkAttr {
			pairs = append(pairs, chunk.Token, escapeAttr(translated))
		} else {
			pairs = append(pairs, chunk.Token, escapeText(translated))
		}
	}

	return strings.NewReplacer(pairs...).Replace(payload.TokenizedHTML), nil
}

func (ex *extraction) nextToken() string {
	ex.counter++
	return fmt.Sprintf("@@TRANSLATEX_CHUNK_%05d@@", ex.counter)
}

func (ex *extraction) record(kind translatex.ChunkKind, text string) {
	length := len([]rune(text))
	ex.stats.ChunkCount++
	ex.stats.TotalChars += length
	if length > ex.stats.MaxChars {
		ex.stats.MaxChars = length
	}
	if kind == translatex.ChunkAttr {
		ex.stats.AttrChunks++
	} else {
		ex.stats.TextChunks++
	}
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	return html.EscapeString(s)
}

func containsAttr(list []string, key string) bool {
	for _, a := range list {
		if a == key {
			return true
		}
	}
	return false
}
