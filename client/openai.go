package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	translatex "github.com/translatex/translatex-go"
)

// OpenAITranslator is an alternative Translator backend for deployments
// without the hosted API. It sends each batch as a JSON array and expects
// a JSON object with a translations array of the same length.
type OpenAITranslator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI translator.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAITranslator creates a new OpenAI-backed translator.
func NewOpenAITranslator(cfg OpenAIConfig) *OpenAITranslator {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAITranslator{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// TranslateTexts translates a batch of texts, preserving order and count.
func (t *OpenAITranslator) TranslateTexts(ctx context.Context, texts []string, targetLang, sourceHTML string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, &translatex.ClientError{Kind: translatex.KindTransport, Cause: err}
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: t.systemPrompt(targetLang)},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		Temperature: t.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &translatex.ClientError{Kind: translatex.KindTransport, Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &translatex.ClientError{
			Kind: translatex.KindTransport,
			Body: "no choices returned",
		}
	}

	return t.parseResponse(resp.Choices[0].Message.Content, len(texts))
}

// TranslateHTML translates a whole document as a single-item batch, then
// post-processes lang and og:locale metadata like the hosted client.
func (t *OpenAITranslator) TranslateHTML(ctx context.Context, htmlContent, targetLang string) (string, error) {
	out, err := t.TranslateTexts(ctx, []string{htmlContent}, targetLang, "")
	if err != nil {
		return "", err
	}
	return PostprocessHTML(out[0], targetLang), nil
}

func (t *OpenAITranslator) systemPrompt(targetLang string) string {
	name := translatex.LanguageNames[targetLang]
	if name == "" {
		name = targetLang
	}

	return fmt.Sprintf(`You are an expert native translator. Translate every string in the JSON array the user sends into idiomatic %s.

Rules:
- Do NOT translate HTML tags, attributes, URLs, email addresses, or placeholder tokens of the form @@TRANSLATEX_CHUNK_NNNNN@@.
- Preserve leading and trailing whitespace of every string exactly.
- Return a JSON object {"translations": [...]} with exactly one output string per input string, in the same order.`, name)
}

func (t *OpenAITranslator) parseResponse(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	var parsed struct {
		Translations []string `json:"translations"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, &translatex.ClientError{
			Kind:  translatex.KindTransport,
			Body:  snippet(content),
			Cause: err,
		}
	}

	if len(parsed.Translations) != expected {
		return nil, &translatex.CountMismatchError{Expected: expected, Got: len(parsed.Translations)}
	}
	return parsed.Translations, nil
}

// Verify OpenAITranslator implements Translator
var _ Translator = (*OpenAITranslator)(nil)
