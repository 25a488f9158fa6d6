package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	translatex "github.com/translatex/translatex-go"
)

// newOpenAIServer serves chat completions whose content is a translations
// object built by translate.
func newOpenAIServer(t *testing.T, translate func(texts []string) []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		var texts []string
		if len(req.Messages) > 0 {
			_ = json.Unmarshal([]byte(req.Messages[len(req.Messages)-1].Content), &texts)
		}

		content, _ := json.Marshal(map[string][]string{"translations": translate(texts)})
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": string(content)}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAITranslator_TranslateTexts(t *testing.T) {
	srv := newOpenAIServer(t, func(texts []string) []string {
		out := make([]string, len(texts))
		for i, text := range texts {
			out[i] = "[fr]" + text
		}
		return out
	})
	defer srv.Close()

	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	got, err := tr.TranslateTexts(context.Background(), []string{"Hello", "World"}, "fr", "")
	if err != nil {
		t.Fatalf("TranslateTexts failed: %v", err)
	}
	if len(got) != 2 || got[0] != "[fr]Hello" || got[1] != "[fr]World" {
		t.Errorf("TranslateTexts = %v", got)
	}
}

func TestOpenAITranslator_CountMismatch(t *testing.T) {
	srv := newOpenAIServer(t, func([]string) []string {
		return []string{"only one"}
	})
	defer srv.Close()

	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	_, err := tr.TranslateTexts(context.Background(), []string{"a", "b", "c"}, "fr", "")

	var cm *translatex.CountMismatchError
	if !errors.As(err, &cm) {
		t.Fatalf("err = %v, want *CountMismatchError", err)
	}
	if cm.Expected != 3 || cm.Got != 1 {
		t.Errorf("mismatch = %d/%d, want 3/1", cm.Expected, cm.Got)
	}
}

func TestOpenAITranslator_TranslateHTMLPostprocesses(t *testing.T) {
	srv := newOpenAIServer(t, func(texts []string) []string {
		out := make([]string, len(texts))
		for i, text := range texts {
			out[i] = strings.ReplaceAll(text, "Hello", "Bonjour")
		}
		return out
	})
	defer srv.Close()

	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	got, err := tr.TranslateHTML(context.Background(),
		`<html lang="en"><head></head><body><p>Hello</p></body></html>`, "fr")
	if err != nil {
		t.Fatalf("TranslateHTML failed: %v", err)
	}

	if !strings.Contains(got, "Bonjour") {
		t.Errorf("Body not translated:\n%s", got)
	}
	if !strings.Contains(got, `lang="fr"`) {
		t.Errorf("Root lang not rewritten for the target language:\n%s", got)
	}
}

func TestOpenAITranslator_EmptyBatch(t *testing.T) {
	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "test"})
	got, err := tr.TranslateTexts(context.Background(), nil, "fr", "")
	if err != nil {
		t.Fatalf("TranslateTexts failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("TranslateTexts = %v, want empty", got)
	}
}
