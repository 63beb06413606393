package generator

import (
	"context"
	"sync"
	"time"

	"linkedin_post_generator/apperr"
)

// Session holds one user's generation context so a result can be refined.
// At most one generation runs per session at a time.
type Session struct {
	ID string

	agent *Agent
	run   sync.Mutex // held for the duration of a generation

	mu      sync.Mutex
	last    *GenerationResult
	history []Turn
}

// NewSession creates a session with no result yet.
func NewSession(id string, agent *Agent) *Session {
	return &Session{ID: id, agent: agent}
}

// Propose runs req and makes its result the session's current result.
func (s *Session) Propose(ctx context.Context, req GenerationRequest, apiKey string) (GenerationResult, error) {
	if !s.run.TryLock() {
		return GenerationResult{}, apperr.New(apperr.CodeBusy, "a generation is already in progress for this session")
	}
	defer s.run.Unlock()

	result, err := s.agent.Generate(ctx, req, apiKey)
	if err != nil {
		return GenerationResult{}, err
	}
	s.appendTurn(string(req.Mode()), result)
	return result, nil
}

// Refine rewrites candidate index of the current result with ref.
func (s *Session) Refine(ctx context.Context, ref Refinement, index int, apiKey string) (GenerationResult, error) {
	last, ok := s.Last()
	if !ok {
		return GenerationResult{}, apperr.New(apperr.CodeInvalidInput, "nothing to refine yet; generate a post first")
	}
	if index < 0 || index >= len(last.Candidates) {
		return GenerationResult{}, apperr.Newf(apperr.CodeInvalidInput, "candidate index %d out of range", index)
	}
	req, err := last.Request.Refined(last.Candidates[index].Body, ref)
	if err != nil {
		return GenerationResult{}, err
	}

	if !s.run.TryLock() {
		return GenerationResult{}, apperr.New(apperr.CodeBusy, "a generation is already in progress for this session")
	}
	defer s.run.Unlock()

	result, err := s.agent.Generate(ctx, req, apiKey)
	if err != nil {
		return GenerationResult{}, err
	}
	s.appendTurn(string(ref), result)
	return result, nil
}

// Last returns the current result.
func (s *Session) Last() (GenerationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return GenerationResult{}, false
	}
	return *s.last, true
}

// History returns a copy of the session turns, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

func (s *Session) appendTurn(directive string, result GenerationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &result
	s.history = append(s.history, Turn{
		Directive: directive,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	})
}
