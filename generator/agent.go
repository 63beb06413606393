package generator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/logger"
	"linkedin_post_generator/metrics"
)

// Recorder persists the side effects of a successful generation.
type Recorder interface {
	IncrementUsage(ctx context.Context, eventID string, tone Tone) error
	RecordGeneration(ctx context.Context, result GenerationResult) error
}

// Agent runs the generation pipeline: prompt, completion, post-processing
// and recording.
type Agent struct {
	llm      LLMClient
	recorder Recorder
	log      *zap.Logger
}

// NewAgent returns an Agent. recorder may be nil.
func NewAgent(llm LLMClient, recorder Recorder, log *zap.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm, recorder: recorder, log: logger.OrNop(log)}, nil
}

// Generate runs one pipeline call. A failed or cancelled call returns no
// result and records nothing.
func (a *Agent) Generate(ctx context.Context, req GenerationRequest, apiKey string) (GenerationResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx, a.log).With(
		zap.String("tone", string(req.Tone())),
		zap.String("length", string(req.Length())),
		zap.String("mode", string(req.Mode())),
	)

	raw, err := a.llm.Complete(ctx, BuildPrompt(req), apiKey)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		status := string(apperr.CodeOf(err))
		if ctx.Err() != nil {
			status = "canceled"
		}
		metrics.GenerationsTotal.WithLabelValues(string(req.Tone()), string(req.Mode()), status).Inc()
		log.Warn("generation failed", zap.String("status", status), zap.Error(err))
		return GenerationResult{}, err
	}

	result := Process(raw, req)
	if result.Degraded {
		metrics.DegradedResponsesTotal.Inc()
		log.Warn("variations response had no recognizable segments; returning raw text",
			zap.String("generation_id", result.ID))
	}
	for _, c := range result.Candidates {
		metrics.EngagementScore.Observe(float64(c.Score))
	}

	if a.recorder != nil {
		if err := a.recorder.IncrementUsage(ctx, result.ID, req.Tone()); err != nil {
			log.Error("record usage failed", zap.String("generation_id", result.ID), zap.Error(err))
		}
		if err := a.recorder.RecordGeneration(ctx, result); err != nil {
			log.Error("record generation history failed", zap.String("generation_id", result.ID), zap.Error(err))
		}
	}

	metrics.GenerationsTotal.WithLabelValues(string(req.Tone()), string(req.Mode()), "ok").Inc()
	metrics.GenerationDuration.WithLabelValues(string(req.Mode())).Observe(time.Since(start).Seconds())
	log.Info("generation done",
		zap.String("generation_id", result.ID),
		zap.Int("candidates", len(result.Candidates)),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

// Hooks asks for three opening hooks for topic.
func (a *Agent) Hooks(ctx context.Context, topic, apiKey string) ([]string, error) {
	prompt, err := BuildHooksPrompt(topic)
	if err != nil {
		return nil, err
	}
	raw, err := a.llm.Complete(ctx, prompt, apiKey)
	if err != nil {
		return nil, err
	}
	return ParseHooks(raw), nil
}

// CTAs asks for three call-to-action lines for topic.
func (a *Agent) CTAs(ctx context.Context, topic, apiKey string) ([]string, error) {
	prompt, err := BuildCTAPrompt(topic)
	if err != nil {
		return nil, err
	}
	raw, err := a.llm.Complete(ctx, prompt, apiKey)
	if err != nil {
		return nil, err
	}
	return ParseCTAs(raw), nil
}

// Ping verifies that the completion API accepts the credentials.
func (a *Agent) Ping(ctx context.Context, apiKey string) error {
	_, err := a.llm.Complete(ctx, Prompt{
		System:    "You are a test assistant.",
		User:      "Say 'API connection successful'",
		MaxTokens: 16,
	}, apiKey)
	return err
}
