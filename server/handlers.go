package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/generator"
	"linkedin_post_generator/logger"
	"linkedin_post_generator/publisher"
	"linkedin_post_generator/store"
)

// APIKeyHeader lets a caller supply its own completion API key.
const APIKeyHeader = "X-API-Key"

const maxBodyBytes = 1 << 20

// --- Generation ---

type generateReq struct {
	generator.RequestInput
	SessionID string `json:"session_id,omitempty"`
}

type sessionResp struct {
	SessionID string                     `json:"session_id"`
	Result    generator.GenerationResult `json:"result"`
	History   []generator.Turn           `json:"history,omitempty"`
}

type refineReq struct {
	Refinement string `json:"refinement"`
	Candidate  int    `json:"candidate"`
}

type topicReq struct {
	Topic string `json:"topic"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if !decode(w, r, &req) {
		return
	}
	genReq, err := generator.NewRequest(req.RequestInput)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var sess *generator.Session
	if id := strings.TrimSpace(req.SessionID); id != "" {
		var ok bool
		if sess, ok = s.sessions.get(id); !ok {
			writeError(w, r, apperr.New(apperr.CodeNotFound, "session not found"))
			return
		}
	} else {
		sess = s.sessions.create(s.agent)
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.genTimeout)
	defer cancel()

	result, err := sess.Propose(ctx, genReq, apiKey(r))
	if err != nil {
		writeError(w, r, generationError(ctx, err))
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: sess.ID, Result: result})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, r, apperr.New(apperr.CodeNotFound, "session not found"))
		return
	}
	last, ok := sess.Last()
	if !ok {
		writeError(w, r, apperr.New(apperr.CodeNotFound, "session has no result yet"))
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: sess.ID, Result: last, History: sess.History()})
}

func (s *Server) handleSessionRefine(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, r, apperr.New(apperr.CodeNotFound, "session not found"))
		return
	}
	var req refineReq
	if !decode(w, r, &req) {
		return
	}
	ref, err := generator.ParseRefinement(req.Refinement)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.genTimeout)
	defer cancel()
	result, err := sess.Refine(ctx, ref, req.Candidate, apiKey(r))
	if err != nil {
		writeError(w, r, generationError(ctx, err))
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: sess.ID, Result: result})
}

func (s *Server) handleHooks(w http.ResponseWriter, r *http.Request) {
	s.handleSuggestions(w, r, "hooks", s.agent.Hooks)
}

func (s *Server) handleCTAs(w http.ResponseWriter, r *http.Request) {
	s.handleSuggestions(w, r, "ctas", s.agent.CTAs)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request, key string,
	fn func(ctx context.Context, topic, apiKey string) ([]string, error)) {
	var req topicReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.genTimeout)
	defer cancel()
	items, err := fn(ctx, req.Topic, apiKey(r))
	if err != nil {
		writeError(w, r, generationError(ctx, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{key: items})
}

// --- Drafts ---

type draftCreateReq struct {
	Body     string   `json:"body"`
	Hashtags []string `json:"hashtags"`
	Tone     string   `json:"tone"`
	Length   string   `json:"length"`
	Score    *int     `json:"score"`
}

func (s *Server) handleDraftList(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.store.ListDrafts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": drafts})
}

func (s *Server) handleDraftCreate(w http.ResponseWriter, r *http.Request) {
	var req draftCreateReq
	if !decode(w, r, &req) {
		return
	}
	tone, err := generator.ParseTone(req.Tone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	length, err := generator.ParseLength(req.Length)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c := generator.PostCandidate{Body: req.Body, Hashtags: generator.ExtractHashtags(req.Body)}
	if req.Hashtags != nil {
		if c.Hashtags, err = generator.CheckHashtags(req.Hashtags); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Score != nil {
		c.Score = *req.Score
	} else {
		c.Score = generator.CandidateScore(req.Body, c.Hashtags, length.Band())
	}

	id, err := s.store.SaveDraft(r.Context(), c, tone, length)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDraftDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteDraft(r.Context(), id); err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Code == apperr.CodeNotFound {
			err = appErr.WithDetail("nothing was deleted")
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := publisher.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var entries []publisher.Entry
	switch source := r.URL.Query().Get("source"); source {
	case "", "drafts":
		drafts, err := s.store.ListDrafts(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries = publisher.FromDrafts(drafts)
	case "history":
		posts, err := s.store.ListPosts(r.Context(), math.MaxInt32, 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries = publisher.FromPosts(posts)
	default:
		writeError(w, r, apperr.Newf(apperr.CodeInvalidInput, "unsupported export source %q", source))
		return
	}

	var buf bytes.Buffer
	if err := publisher.Export(&buf, format, entries); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="linkedin_posts.%s"`, format.Extension()))
	_, _ = buf.WriteTo(w)
}

// --- History ---

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		posts []store.Post
		err   error
	)
	if fav, _ := strconv.ParseBool(q.Get("favorites")); fav {
		posts, err = s.store.Favorites(r.Context())
	} else {
		limit, lerr := queryInt(q.Get("limit"))
		offset, oerr := queryInt(q.Get("offset"))
		if lerr != nil || oerr != nil {
			writeError(w, r, apperr.New(apperr.CodeInvalidInput, "limit and offset must be non-negative integers"))
			return
		}
		posts, err = s.store.ListPosts(r.Context(), limit, offset)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) handleHistoryFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fav, err := s.store.ToggleFavorite(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": fav})
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// --- Stats & health ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": s.store.Usage(), "statistics": stats})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, r, apperr.Wrap(err, apperr.CodeTransientNetwork, "store unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

type errorBody struct {
	Code              apperr.Code `json:"code"`
	Message           string      `json:"message"`
	Detail            string      `json:"detail,omitempty"`
	RetryAfterSeconds int         `json:"retry_after_seconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.Normalize(err)
	log := logger.FromContext(r.Context(), nil)

	body := errorBody{Code: appErr.Code, Message: appErr.Message, Detail: appErr.Detail}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("code", string(appErr.Code)), zap.Error(err))
		if appErr.Code == apperr.CodeUnknown {
			body.Message = "internal server error"
		}
	} else {
		log.Warn("request rejected", zap.String("code", string(appErr.Code)), zap.Error(err))
	}
	if appErr.RetryAfter > 0 {
		body.RetryAfterSeconds = int(math.Ceil(appErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfterSeconds))
	}
	writeJSON(w, status, body)
}

// generationError maps a context failure of a pipeline call onto the
// error taxonomy.
func generationError(ctx context.Context, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(err, apperr.CodeTransientNetwork, "generation timed out")
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Wrap(err, apperr.CodeTransientNetwork, "generation canceled")
	}
	return err
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, apperr.Wrap(err, apperr.CodeInvalidInput, "invalid JSON body"))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, apperr.Newf(apperr.CodeInvalidInput, "invalid id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func apiKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}
