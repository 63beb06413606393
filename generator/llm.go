package generator

import (
	"context"
	"time"
)

// LLMClient abstracts the completion API so it can be replaced or mocked.
// An empty apiKey selects the client's configured key.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt, apiKey string) (string, error)
}

// LLMSettings configures a concrete client.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxRetries bounds retries of transient network failures.
	MaxRetries int
	// BackoffBase is the first retry delay; it doubles per retry.
	BackoffBase time.Duration
}
