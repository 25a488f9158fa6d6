package chunker

import (
	"errors"
	"strings"
	"testing"

	translatex "github.com/translatex/translatex-go"
)

func buildPayload(t *testing.T, content string) *translatex.ChunkPayload {
	t.Helper()
	payload, err := New().BuildPayload(content)
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}
	return payload
}

func TestBuildPayload_ExtractsTextAndAttributes(t *testing.T) {
	payload := buildPayload(t, `<div title="Hi"><p>Hello <b>world</b></p></div>`)
	if payload == nil {
		t.Fatal("expected a payload")
	}

	if got := len(payload.Chunks); got != 3 {
		t.Fatalf("Chunks = %d, want 3", got)
	}
	if got := len(payload.Texts); got != 3 {
		t.Fatalf("Texts = %v, want 3 entries", payload.Texts)
	}
	for _, want := range []string{"Hi", "Hello", "world"} {
		found := false
		for _, text := range payload.Texts {
			if text == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Texts missing %q: %v", want, payload.Texts)
		}
	}

	if payload.Stats.TextChunks != 2 || payload.Stats.AttrChunks != 1 {
		t.Errorf("Stats = %+v, want 2 text / 1 attr", payload.Stats)
	}

	// The original strings are gone from the tokenized document.
	for _, original := range []string{"Hi", "Hello", "world"} {
		if strings.Contains(payload.TokenizedHTML, ">"+original) ||
			strings.Contains(payload.TokenizedHTML, `"`+original+`"`) {
			t.Errorf("Tokenized HTML still contains %q:\n%s", original, payload.TokenizedHTML)
		}
	}
	if !strings.Contains(payload.TokenizedHTML, "@@TRANSLATEX_CHUNK_00001@@") {
		t.Errorf("Tokenized HTML missing tokens:\n%s", payload.TokenizedHTML)
	}
}

func TestBuildPayload_DedupesByteIdenticalStrings(t *testing.T) {
	payload := buildPayload(t, `<div title="Hello"><p>Hello</p><p>Hello</p></div>`)
	if payload == nil {
		t.Fatal("expected a payload")
	}

	if len(payload.Chunks) != 3 {
		t.Fatalf("Chunks = %d, want 3", len(payload.Chunks))
	}
	if len(payload.Texts) != 1 || payload.Texts[0] != "Hello" {
		t.Fatalf("Texts = %v, want exactly [Hello]", payload.Texts)
	}

	hash := payload.Chunks[0].TextHash
	for _, chunk := range payload.Chunks {
		if chunk.TextIndex != 0 {
			t.Errorf("Chunk %s TextIndex = %d, want 0", chunk.Token, chunk.TextIndex)
		}
		if chunk.TextHash != hash {
			t.Errorf("Chunk %s TextHash = %q, want shared %q", chunk.Token, chunk.TextHash, hash)
		}
	}
	if payload.Stats.Deduped != 2 {
		t.Errorf("Stats.Deduped = %d, want 2", payload.Stats.Deduped)
	}
}

func TestBuildPayload_HashCollisionKeepsDedup(t *testing.T) {
	// Force every string onto one hash so the collision path runs for
	// each extraction; repeated occurrences must still converge.
	c := New()
	c.hashText = func(string) string { return "collide" }

	payload, err := c.BuildPayload(`<div title="Hello"><p>Hello</p><p>World</p><p>Hello</p></div>`)
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}
	if payload == nil {
		t.Fatal("expected a payload")
	}

	if len(payload.Texts) != 2 {
		t.Fatalf("Texts = %v, want exactly [Hello, World]", payload.Texts)
	}

	helloIdx, helloHash := -1, ""
	worldHash := ""
	for i, chunk := range payload.Chunks {
		switch payload.Texts[chunk.TextIndex] {
		case "Hello":
			if helloIdx == -1 {
				helloIdx, helloHash = chunk.TextIndex, chunk.TextHash
			}
			if chunk.TextIndex != helloIdx || chunk.TextHash != helloHash {
				t.Errorf("Chunk %d: Hello occurrence diverged (index %d hash %q, want %d %q)",
					i, chunk.TextIndex, chunk.TextHash, helloIdx, helloHash)
			}
		case "World":
			worldHash = chunk.TextHash
		}
	}
	if worldHash == helloHash {
		t.Error("Colliding distinct strings must end up under distinct keys")
	}

	translations := make([]string, len(payload.Texts))
	for i, text := range payload.Texts {
		translations[i] = map[string]string{"Hello": "Bonjour", "World": "Monde"}[text]
	}
	out, err := c.ApplyTranslations(payload, translations)
	if err != nil {
		t.Fatalf("ApplyTranslations failed: %v", err)
	}
	for _, want := range []string{`title="Bonjour"`, ">Bonjour<", ">Monde<"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildPayload_SkipsNonTranslatableSubtrees(t *testing.T) {
	payload := buildPayload(t, `<body>
		<p>Keep</p>
		<script>var x = "drop me";</script>
		<style>.a { content: "drop"; }</style>
		<code>drop()</code>
		<div data-no-translate><p>internal</p></div>
	</body>`)
	if payload == nil {
		t.Fatal("expected a payload")
	}

	if len(payload.Texts) != 1 || payload.Texts[0] != "Keep" {
		t.Errorf("Texts = %v, want exactly [Keep]", payload.Texts)
	}
	// Skipped subtrees stay in the document untouched.
	if !strings.Contains(payload.TokenizedHTML, `var x = "drop me";`) {
		t.Error("Script content must survive verbatim")
	}
	if !strings.Contains(payload.TokenizedHTML, "<p>internal</p>") {
		t.Error("data-no-translate subtree must survive verbatim")
	}
}

func TestBuildPayload_MetaContentRestricted(t *testing.T) {
	payload := buildPayload(t, `<head>
		<meta name="description" content="A fine page">
		<meta property="og:title" content="Fine">
		<meta name="viewport" content="width=device-width">
		<meta charset="utf-8">
	</head><body><p>x</p></body>`)
	if payload == nil {
		t.Fatal("expected a payload")
	}

	joined := strings.Join(payload.Texts, "|")
	if !strings.Contains(joined, "A fine page") || !strings.Contains(joined, "Fine") {
		t.Errorf("Descriptive meta content missing from %v", payload.Texts)
	}
	if strings.Contains(joined, "width=device-width") {
		t.Errorf("Viewport content must not be extracted: %v", payload.Texts)
	}
}

func TestBuildPayload_NoChunks(t *testing.T) {
	for name, content := range map[string]string{
		"empty":      "",
		"script":     `<html><body><script>var x = 1;</script></body></html>`,
		"whitespace": `<html><body>   </body></html>`,
	} {
		payload, err := New().BuildPayload(content)
		if err != nil {
			t.Errorf("%s: BuildPayload error: %v", name, err)
		}
		if payload != nil {
			t.Errorf("%s: payload = %+v, want nil", name, payload)
		}
	}
}

func TestApplyTranslations_RoundTrip(t *testing.T) {
	payload := buildPayload(t, `<div title="Hi"><p>Hello <b>world</b></p></div>`)
	if payload == nil {
		t.Fatal("expected a payload")
	}

	dictionary := map[string]string{"Hi": "Oi", "Hello": "Olá", "world": "mundo"}
	translations := make([]string, len(payload.Texts))
	for i, text := range payload.Texts {
		translations[i] = dictionary[text]
	}

	out, err := New().ApplyTranslations(payload, translations)
	if err != nil {
		t.Fatalf("ApplyTranslations failed: %v", err)
	}

	for _, want := range []string{`title="Oi"`, "Olá", "mundo"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "@@TRANSLATEX_CHUNK") {
		t.Errorf("Tokens survived reassembly:\n%s", out)
	}
	// "Hello " keeps its trailing space outside the translated core.
	if !strings.Contains(out, "Olá <b>mundo</b>") {
		t.Errorf("Inter-word whitespace lost:\n%s", out)
	}
}

func TestApplyTranslations_PreservesSurroundingWhitespace(t *testing.T) {
	payload := buildPayload(t, "<p>\n  Hello\n</p>")
	if payload == nil {
		t.Fatal("expected a payload")
	}
	if len(payload.Texts) != 1 || payload.Texts[0] != "Hello" {
		t.Fatalf("Texts = %v, want [Hello]", payload.Texts)
	}

	out, err := New().ApplyTranslations(payload, []string{"Olá"})
	if err != nil {
		t.Fatalf("ApplyTranslations failed: %v", err)
	}
	if !strings.Contains(out, "\n  Olá\n") {
		t.Errorf("Whitespace around the text run lost:\n%q", out)
	}
}

func TestApplyTranslations_Escaping(t *testing.T) {
	payload := buildPayload(t, `<div title="safe"><p>plain</p></div>`)
	if payload == nil {
		t.Fatal("expected a payload")
	}

	translations := make([]string, len(payload.Texts))
	for i, text := range payload.Texts {
		switch text {
		case "safe":
			translations[i] = `R&D "quoted"`
		case "plain":
			translations[i] = `1 < 2 & <b>bold</b>`
		}
	}

	out, err := New().ApplyTranslations(payload, translations)
	if err != nil {
		t.Fatalf("ApplyTranslations failed: %v", err)
	}
	if !strings.Contains(out, "1 &lt; 2 &amp; &lt;b&gt;bold&lt;/b&gt;") {
		t.Errorf("Text translation not escaped:\n%s", out)
	}
	if !strings.Contains(out, "R&amp;D") || strings.Contains(out, `"quoted"">`) {
		t.Errorf("Attribute translation not escaped:\n%s", out)
	}
}

func TestApplyTranslations_LengthMismatch(t *testing.T) {
	payload := buildPayload(t, `<p>Hello</p>`)
	if payload == nil {
		t.Fatal("expected a payload")
	}

	_, err := New().ApplyTranslations(payload, []string{"a", "b"})
	var re *translatex.ReassemblyError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *ReassemblyError", err)
	}
}

func TestApplyTranslations_EmptyPayload(t *testing.T) {
	_, err := New().ApplyTranslations(nil, nil)
	var re *translatex.ReassemblyError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *ReassemblyError", err)
	}
}
