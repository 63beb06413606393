package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin_post_generator/apperr"
)

// fakeCompletions serves the chat completions endpoint with a scripted
// sequence of handlers; the last one repeats.
type fakeCompletions struct {
	calls    atomic.Int32
	handlers []http.HandlerFunc
	lastKey  atomic.Value
}

func (f *fakeCompletions) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(f.calls.Add(1)) - 1
	f.lastKey.Store(r.Header.Get("Authorization"))
	if n >= len(f.handlers) {
		n = len(f.handlers) - 1
	}
	f.handlers[n](w, r)
}

func replyText(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": text},
			}},
		})
	}
}

func replyStatus(status int, header http.Header) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		for k, v := range header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"scripted failure","type":"test_error"}}`))
	}
}

func hang(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(2 * time.Second):
	}
}

func newTestLLM(t *testing.T, fake *fakeCompletions, retries int) *OpenAILLM {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	llm, err := NewOpenAILLMFromConfig(&LLMSettings{
		Model:       "test-model",
		APIKey:      "configured-key",
		BaseURL:     srv.URL + "/v1/",
		Timeout:     200 * time.Millisecond,
		MaxRetries:  retries,
		BackoffBase: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return llm
}

var testPrompt = Prompt{System: "sys", User: "user", MaxTokens: 32, Temperature: 0.5}

func TestCompleteSuccess(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{replyText("  A fine post. #go  ")}}
	llm := newTestLLM(t, fake, 2)

	text, err := llm.Complete(context.Background(), testPrompt, "")
	require.NoError(t, err)
	assert.Equal(t, "A fine post. #go", text)
	assert.EqualValues(t, 1, fake.calls.Load())
	assert.Equal(t, "Bearer configured-key", fake.lastKey.Load())
}

func TestCompletePerCallKeyOverride(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{replyText("ok")}}
	llm := newTestLLM(t, fake, 0)

	_, err := llm.Complete(context.Background(), testPrompt, "caller-key")
	require.NoError(t, err)
	assert.Equal(t, "Bearer caller-key", fake.lastKey.Load())
}

func TestCompleteMissingKey(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{replyText("unused")}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	llm, err := NewOpenAILLMFromConfig(&LLMSettings{Model: "m", BaseURL: srv.URL + "/v1/"}, nil)
	require.NoError(t, err)

	_, err = llm.Complete(context.Background(), testPrompt, "")
	assert.Equal(t, apperr.CodeAuth, apperr.CodeOf(err))
	assert.EqualValues(t, 0, fake.calls.Load())
}

func TestCompleteAuthFailureIsNotRetried(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{replyStatus(http.StatusUnauthorized, nil)}}
	llm := newTestLLM(t, fake, 2)

	_, err := llm.Complete(context.Background(), testPrompt, "")
	assert.Equal(t, apperr.CodeAuth, apperr.CodeOf(err))
	assert.EqualValues(t, 1, fake.calls.Load())
}

func TestCompleteServerErrorSurfacesImmediately(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{replyStatus(http.StatusInternalServerError, nil)}}
	llm := newTestLLM(t, fake, 2)

	_, err := llm.Complete(context.Background(), testPrompt, "")
	assert.Equal(t, apperr.CodeUpstream, apperr.CodeOf(err))
	assert.EqualValues(t, 1, fake.calls.Load())

	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "status 500", appErr.Detail)
}

func TestCompleteRateLimitRetriedOnce(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{
		replyStatus(http.StatusTooManyRequests, http.Header{"Retry-After": {"0"}}),
		replyText("after the wait"),
	}}
	llm := newTestLLM(t, fake, 2)

	text, err := llm.Complete(context.Background(), testPrompt, "")
	require.NoError(t, err)
	assert.Equal(t, "after the wait", text)
	assert.EqualValues(t, 2, fake.calls.Load())
}

func TestCompleteRateLimitSurfacesAfterOneRetry(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{replyStatus(http.StatusTooManyRequests, nil)}}
	llm := newTestLLM(t, fake, 2)

	_, err := llm.Complete(context.Background(), testPrompt, "")
	assert.Equal(t, apperr.CodeRateLimit, apperr.CodeOf(err))
	assert.EqualValues(t, 2, fake.calls.Load())
}

func TestCompleteLongRetryAfterIsNotWaitedOut(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{
		replyStatus(http.StatusTooManyRequests, http.Header{"Retry-After": {"120"}}),
	}}
	llm := newTestLLM(t, fake, 2)

	_, err := llm.Complete(context.Background(), testPrompt, "")
	assert.Equal(t, apperr.CodeRateLimit, apperr.CodeOf(err))
	assert.Equal(t, 120*time.Second, apperr.RetryAfterOf(err))
	assert.EqualValues(t, 1, fake.calls.Load())
}

func TestCompleteTimeoutRetriedThenTransient(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{hang}}
	llm := newTestLLM(t, fake, 1)

	_, err := llm.Complete(context.Background(), testPrompt, "")
	assert.Equal(t, apperr.CodeTransientNetwork, apperr.CodeOf(err))
	assert.EqualValues(t, 2, fake.calls.Load())
}

func TestCompleteTimeoutRecovers(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{hang, replyText("second try")}}
	llm := newTestLLM(t, fake, 1)

	text, err := llm.Complete(context.Background(), testPrompt, "")
	require.NoError(t, err)
	assert.Equal(t, "second try", text)
}

func TestCompleteEmptyContentIsUpstream(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{replyText("   ")}}
	llm := newTestLLM(t, fake, 2)

	_, err := llm.Complete(context.Background(), testPrompt, "")
	assert.Equal(t, apperr.CodeUpstream, apperr.CodeOf(err))
	assert.EqualValues(t, 1, fake.calls.Load())
}

func TestCompleteCanceledContext(t *testing.T) {
	fake := &fakeCompletions{handlers: []http.HandlerFunc{hang}}
	llm := newTestLLM(t, fake, 2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := llm.Complete(ctx, testPrompt, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewOpenAILLMFromConfigValidation(t *testing.T) {
	_, err := NewOpenAILLMFromConfig(nil, nil)
	assert.Error(t, err)
	_, err = NewOpenAILLMFromConfig(&LLMSettings{}, nil)
	assert.Error(t, err)
	_, err = NewOpenAILLMFromConfig(&LLMSettings{Model: "m", MaxRetries: -1}, nil)
	assert.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, 7*time.Second, parseRetryAfter("7", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-3", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
}
