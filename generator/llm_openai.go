package generator

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/logger"
	"linkedin_post_generator/metrics"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultBackoffBase = time.Second
	// maxRetryAfterWait caps how long a rate-limit hint is honoured before
	// the error is surfaced instead of retried.
	maxRetryAfterWait = 30 * time.Second
)

// OpenAILLM implements LLMClient over any OpenAI-compatible chat completions
// endpoint using the official openai-go SDK.
type OpenAILLM struct {
	Model string

	client      openai.Client
	apiKey      string
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
	log         *zap.Logger
}

// NewOpenAILLMFromConfig builds a client. An empty API key is allowed; each
// call must then supply one.
func NewOpenAILLMFromConfig(cfg *LLMSettings, log *zap.Logger) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, errors.New("llm max retries must not be negative")
	}
	// Retries are owned by Complete so the SDK's own policy is disabled.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := cfg.BackoffBase
	if base <= 0 {
		base = defaultBackoffBase
	}
	return &OpenAILLM{
		Model:       cfg.Model,
		client:      openai.NewClient(opts...),
		apiKey:      cfg.APIKey,
		timeout:     timeout,
		maxRetries:  cfg.MaxRetries,
		backoffBase: base,
		log:         logger.OrNop(log),
	}, nil
}

// Complete sends prompt and returns the generated text. Failures are
// classified into the apperr taxonomy; no partial text is ever returned.
func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt, apiKey string) (string, error) {
	key := apiKey
	if key == "" {
		key = o.apiKey
	}
	if key == "" {
		return "", apperr.New(apperr.CodeAuth, "completion API key is not configured")
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	}
	if prompt.MaxTokens > 0 {
		params.MaxTokens = openai.Int(prompt.MaxTokens)
	}
	if prompt.Temperature > 0 {
		params.Temperature = openai.Float(prompt.Temperature)
	}

	log := logger.FromContext(ctx, o.log)
	maxTries := o.maxRetries + 1
	attempt := 0
	rateLimited := false

	operation := func() (string, error) {
		attempt++
		text, err := o.attempt(ctx, params, key)
		if err == nil {
			metrics.CompletionAttemptsTotal.WithLabelValues("ok").Inc()
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.CompletionAttemptsTotal.WithLabelValues("canceled").Inc()
			return "", backoff.Permanent(ctxErr)
		}

		code := apperr.CodeOf(err)
		metrics.CompletionAttemptsTotal.WithLabelValues(string(code)).Inc()
		log.Warn("completion attempt failed",
			zap.Int("attempt", attempt),
			zap.String("code", string(code)),
			zap.Error(err))

		switch code {
		case apperr.CodeTransientNetwork:
			if attempt >= maxTries {
				return "", backoff.Permanent(err)
			}
			return "", err
		case apperr.CodeRateLimit:
			hint := apperr.RetryAfterOf(err)
			if rateLimited || attempt >= maxTries || hint > maxRetryAfterWait {
				return "", backoff.Permanent(err)
			}
			rateLimited = true
			if hint > 0 {
				return "", &backoff.RetryAfterError{Duration: hint}
			}
			return "", err
		default:
			return "", backoff.Permanent(err)
		}
	}

	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(o.newBackOff()),
		backoff.WithMaxTries(uint(maxTries)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var retryAfter *backoff.RetryAfterError
		if errors.As(err, &retryAfter) {
			return "", apperr.New(apperr.CodeRateLimit, "completion API rate limit exceeded").WithRetryAfter(retryAfter.Duration)
		}
		return "", err
	}
	return text, nil
}

func (o *OpenAILLM) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.backoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = o.backoffBase * 8
	return b
}

// attempt performs one bounded request.
func (o *OpenAILLM) attempt(ctx context.Context, params openai.ChatCompletionNewParams, key string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(attemptCtx, params, option.WithAPIKey(key))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.CodeUpstream, "completion API returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", apperr.New(apperr.CodeUpstream, "completion API returned empty content")
	}
	return text, nil
}

// classify maps an SDK error onto the apperr taxonomy.
func classify(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return apperr.Wrap(err, apperr.CodeTransientNetwork, "completion API unreachable")
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Wrap(err, apperr.CodeAuth, "completion API rejected the credentials")
	case http.StatusTooManyRequests:
		e := apperr.Wrap(err, apperr.CodeRateLimit, "completion API rate limit exceeded")
		if apiErr.Response != nil {
			e = e.WithRetryAfter(parseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now()))
		}
		return e
	default:
		return apperr.Wrap(err, apperr.CodeUpstream, "completion API request failed").
			WithDetail("status " + strconv.Itoa(apiErr.StatusCode))
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
