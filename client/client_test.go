package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	translatex "github.com/translatex/translatex-go"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{
		APIKey:       "test-key",
		TranslateURL: srv.URL + "/translate",
		DetectURL:    srv.URL + "/detect",
	})
	return c, srv
}

func TestClient_TranslateTexts(t *testing.T) {
	var gotSL, gotTL, gotKey string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		gotSL = r.URL.Query().Get("sl")
		gotTL = r.URL.Query().Get("tl")
		gotKey = r.URL.Query().Get("key")

		r.ParseForm()
		texts := r.Form["text"]
		out := make([]string, len(texts))
		for i, text := range texts {
			out[i] = "[fr]" + text
		}
		json.NewEncoder(w).Encode(map[string]any{"translation": out, "detected_lang": "en"})
	}))

	got, err := c.TranslateTexts(context.Background(), []string{"Hello", "World"}, "fr", "")
	if err != nil {
		t.Fatalf("TranslateTexts failed: %v", err)
	}
	want := []string{"[fr]Hello", "[fr]World"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("TranslateTexts returned %v, want %v", got, want)
	}

	if gotSL != "auto" {
		t.Errorf("sl = %q, want auto", gotSL)
	}
	if gotTL != "fr" {
		t.Errorf("tl = %q, want fr", gotTL)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %q, want test-key", gotKey)
	}
}

func TestClient_TranslateTexts_Empty(t *testing.T) {
	c := New(Config{})
	got, err := c.TranslateTexts(context.Background(), nil, "fr", "")
	if err != nil {
		t.Fatalf("TranslateTexts failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty result, got %v", got)
	}
}

func TestClient_TranslateTexts_BatchShrink(t *testing.T) {
	// Reject batches above 2 by answering with a single translation, which
	// forces the shrink path down to a size the backend accepts.
	var batchSizes []int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		texts := r.Form["text"]
		batchSizes = append(batchSizes, len(texts))

		if len(texts) > 2 {
			json.NewEncoder(w).Encode(map[string]any{"translation": []string{"partial"}})
			return
		}
		out := make([]string, len(texts))
		for i, text := range texts {
			out[i] = "T:" + text
		}
		json.NewEncoder(w).Encode(map[string]any{"translation": out})
	}))

	texts := []string{"a", "b", "c", "d", "e"}
	got, err := c.TranslateTexts(context.Background(), texts, "de", "")
	if err != nil {
		t.Fatalf("TranslateTexts failed: %v", err)
	}

	if len(got) != len(texts) {
		t.Fatalf("Got %d translations, want %d", len(got), len(texts))
	}
	for i, text := range texts {
		if got[i] != "T:"+text {
			t.Errorf("got[%d] = %q, want %q", i, got[i], "T:"+text)
		}
	}

	if len(batchSizes) < 2 {
		t.Errorf("Expected shrink retries, saw batch sizes %v", batchSizes)
	}
	for i, size := range batchSizes[1:] {
		if size >= batchSizes[0] {
			t.Errorf("Retry batch %d did not shrink: %v", i+1, batchSizes)
		}
	}
}

func TestClient_TranslateTexts_ShrinkExhausted(t *testing.T) {
	// A backend that always drops one translation can never satisfy any
	// batch size, so the shrink path must give up with a hard failure.
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		texts := r.Form["text"]
		out := make([]string, 0, len(texts))
		for _, text := range texts[:len(texts)-1] {
			out = append(out, "T:"+text)
		}
		json.NewEncoder(w).Encode(map[string]any{"translation": out})
	}))

	_, err := c.TranslateTexts(context.Background(), []string{"a", "b", "c", "d", "e"}, "de", "")
	if err == nil {
		t.Fatal("Expected a hard failure")
	}

	var ce *translatex.ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ClientError, got %T: %v", err, err)
	}
	if ce.Kind != translatex.KindBatchMismatch {
		t.Errorf("Kind = %q, want %q", ce.Kind, translatex.KindBatchMismatch)
	}
}

func TestClient_TranslateTexts_ConcurrentWindows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		texts := r.Form["text"]
		out := make([]string, len(texts))
		for i, text := range texts {
			out[i] = "T:" + text
		}
		json.NewEncoder(w).Encode(map[string]any{"translation": out})
	}))
	t.Cleanup(srv.Close)

	c := New(Config{
		TranslateURL: srv.URL + "/translate",
		DetectURL:    srv.URL + "/detect",
		TextBatch:    3,
		Concurrency:  4,
	})

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%02d", i)
	}

	got, err := c.TranslateTexts(context.Background(), texts, "de", "")
	if err != nil {
		t.Fatalf("TranslateTexts failed: %v", err)
	}
	if len(got) != len(texts) {
		t.Fatalf("Got %d translations, want %d", len(got), len(texts))
	}
	// Order must be restored by index regardless of completion order.
	for i, text := range texts {
		if got[i] != "T:"+text {
			t.Errorf("got[%d] = %q, want %q", i, got[i], "T:"+text)
		}
	}
}

func TestClient_TranslateTexts_HTTPError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusServiceUnavailable)
	}))

	_, err := c.TranslateTexts(context.Background(), []string{"a"}, "de", "")
	var ce *translatex.ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ClientError, got %T: %v", err, err)
	}
	if ce.Status != 503 {
		t.Errorf("Status = %d, want 503", ce.Status)
	}
	if ce.FailureStatus() != "503" {
		t.Errorf("FailureStatus = %q, want 503", ce.FailureStatus())
	}
	if !strings.Contains(ce.Body, "upstream exploded") {
		t.Errorf("Body = %q, want the response snippet", ce.Body)
	}
}

func TestClient_TranslateHTML(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("html") == "" {
			t.Error("Expected html form field")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"translation":   `<html lang="en"><head><title>Bonjour</title></head><body><p>Bonjour</p></body></html>`,
			"detected_lang": "en",
		})
	}))

	got, err := c.TranslateHTML(context.Background(), "<html><body><p>Hello</p></body></html>", "fr")
	if err != nil {
		t.Fatalf("TranslateHTML failed: %v", err)
	}
	if !strings.Contains(got, `lang="fr"`) {
		t.Errorf("Post-processing should set lang=\"fr\", got %q", got)
	}
	if !strings.Contains(got, "Bonjour") {
		t.Errorf("Translation lost: %q", got)
	}
}

func TestClient_TranslateHTML_RTL(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"translation": `<html><body><p>مرحبا</p></body></html>`,
		})
	}))

	got, err := c.TranslateHTML(context.Background(), "<html><body><p>Hello</p></body></html>", "ar")
	if err != nil {
		t.Fatalf("TranslateHTML failed: %v", err)
	}
	if !strings.Contains(got, `dir="rtl"`) {
		t.Errorf("Arabic output should carry dir=\"rtl\": %q", got)
	}
}

func TestClient_DetectLanguage_Cached(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		calls++
		json.NewEncoder(w).Encode(map[string]any{
			"detections": []map[string]string{{"language": "it"}},
		})
	}))

	page := "<html><body><p>Ciao mondo, questo testo serve per il rilevamento.</p></body></html>"

	for i := 0; i < 3; i++ {
		lang, err := c.DetectLanguage(context.Background(), page)
		if err != nil {
			t.Fatalf("DetectLanguage failed: %v", err)
		}
		if lang != "it" {
			t.Errorf("DetectLanguage = %q, want it", lang)
		}
	}

	if calls != 1 {
		t.Errorf("Detect endpoint called %d times, want 1 (cached)", calls)
	}
}

func TestClient_DetectLanguage_EmptySample(t *testing.T) {
	c := New(Config{})
	lang, err := c.DetectLanguage(context.Background(), "<html><body><script>x()</script></body></html>")
	if err != nil {
		t.Fatalf("DetectLanguage failed: %v", err)
	}
	if lang != "" {
		t.Errorf("Expected empty result for text-free page, got %q", lang)
	}
}

func TestTextSample(t *testing.T) {
	page := `<html><head><style>body{color:red}</style></head>
<body><script>var x = "not text";</script><p>Visible   text
here</p></body></html>`

	got := textSample(page)
	if got != "Visible text here" {
		t.Errorf("textSample = %q, want %q", got, "Visible text here")
	}

	long := "<p>" + strings.Repeat("word ", 1000) + "</p>"
	if n := len([]rune(textSample(long))); n > 2000 {
		t.Errorf("Sample length %d exceeds cap", n)
	}
}

func TestLooksSpanish(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			"function words",
			"<p>Bienvenidos a la tienda. Los productos y las ofertas de hoy son para todos en el sitio con descuentos.</p>",
			true,
		},
		{
			"lang attribute",
			`<html lang="es-MX"><body><p>x</p></body></html>`,
			true,
		},
		{
			"og locale",
			`<html><head><meta property="og:locale" content="es_ES"></head><body></body></html>`,
			true,
		},
		{
			"english",
			"<p>Welcome to the store. Today's products and offers are for everyone on the site.</p>",
			false,
		},
		{
			"empty",
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksSpanish(tt.html); got != tt.want {
				t.Errorf("looksSpanish = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldFallbackToHTML(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"reassembly", &translatex.ReassemblyError{Message: "missing token"}, true},
		{"transport", &translatex.ClientError{Kind: translatex.KindTransport}, false},
		{"batch mismatch", &translatex.ClientError{Kind: translatex.KindBatchMismatch}, false},
		{"payload too large", &translatex.ClientError{Status: 413}, false},
		{"rate limited", &translatex.ClientError{Status: 429}, false},
		{"server error", &translatex.ClientError{Status: 500}, false},
		{"not found", &translatex.ClientError{Status: 404}, true},
		{"plain error", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldFallbackToHTML(tt.err); got != tt.want {
				t.Errorf("ShouldFallbackToHTML = %v, want %v", got, tt.want)
			}
		})
	}
}
