package client

import (
	"context"
	"errors"
	"time"

	translatex "github.com/translatex/translatex-go"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func() (T, error)

// WithRetry executes a function with exponential backoff retry.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		// Check context before each attempt
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < cfg.MaxRetries {
			delay := cfg.BaseDelay * time.Duration(1<<attempt)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return zero, lastErr
}

// IsRetryable checks if an error is worth an immediate retry: transport
// failures, rate limits and server errors. Batch mismatches go through
// the adaptive shrink path instead, and 4xx responses will not improve
// on a resend.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ce *translatex.ClientError
	if errors.As(err, &ce) {
		if ce.Kind == translatex.KindTransport {
			return true
		}
		return ce.Status == 429 || ce.Status >= 500
	}

	return false
}

// RetryableTranslator wraps a Translator with retry logic, mainly for the
// OpenAI backend where transient failures are common.
type RetryableTranslator struct {
	translator Translator
	config     RetryConfig
}

// NewRetryableTranslator creates a new translator with retry logic.
func NewRetryableTranslator(translator Translator, cfg RetryConfig) *RetryableTranslator {
	return &RetryableTranslator{
		translator: translator,
		config:     cfg,
	}
}

// TranslateHTML implements Translator with retry logic.
func (t *RetryableTranslator) TranslateHTML(ctx context.Context, html, targetLang string) (string, error) {
	return WithRetry(ctx, t.config, func() (string, error) {
		return t.translator.TranslateHTML(ctx, html, targetLang)
	})
}

// TranslateTexts implements Translator with retry logic.
func (t *RetryableTranslator) TranslateTexts(ctx context.Context, texts []string, targetLang, sourceHTML string) ([]string, error) {
	return WithRetry(ctx, t.config, func() ([]string, error) {
		return t.translator.TranslateTexts(ctx, texts, targetLang, sourceHTML)
	})
}

// Verify RetryableTranslator implements Translator
var _ Translator = (*RetryableTranslator)(nil)
