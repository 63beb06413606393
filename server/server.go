// Package server exposes the generation pipeline, drafts and history as a
// JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"linkedin_post_generator/generator"
	"linkedin_post_generator/logger"
	"linkedin_post_generator/store"
)

const (
	defaultGenerationTimeout = 2 * time.Minute
	defaultSessionTTL        = 30 * time.Minute
	defaultMaxSessions       = 1000
)

// Store is the persistence the API needs; *store.Store implements it.
type Store interface {
	SaveDraft(ctx context.Context, c generator.PostCandidate, tone generator.Tone, length generator.Length) (int64, error)
	ListDrafts(ctx context.Context) ([]store.Draft, error)
	DeleteDraft(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, limit, offset int) ([]store.Post, error)
	Favorites(ctx context.Context) ([]store.Post, error)
	ToggleFavorite(ctx context.Context, id int64) (bool, error)
	DeletePost(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (store.Statistics, error)
	Usage() store.UsageStats
	Ping(ctx context.Context) error
}

// Options tunes a Server.
type Options struct {
	// GenerationTimeout bounds one pipeline call, retries included.
	GenerationTimeout time.Duration
	// SessionTTL drops refine sessions idle for longer than this.
	SessionTTL time.Duration
	// MaxSessions caps the number of live refine sessions.
	MaxSessions int
	Logger      *zap.Logger
}

type Server struct {
	agent      *generator.Agent
	store      Store
	sessions   *sessionStore
	genTimeout time.Duration
	log        *zap.Logger
}

type sessionEntry struct {
	sess     *generator.Session
	lastUsed time.Time
}

// sessionStore keeps refine sessions in memory. Sessions idle longer than
// ttl are dropped, and at most max are kept; the least recently used one
// makes room for a new session.
type sessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

func newSessionStore(ttl time.Duration, maxSessions int) *sessionStore {
	return &sessionStore{
		entries: make(map[string]*sessionEntry),
		ttl:     ttl,
		max:     maxSessions,
		now:     time.Now,
	}
}

// create registers a new session under a fresh uuid.
func (s *sessionStore) create(agent *generator.Agent) *generator.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	sess := generator.NewSession(uuid.NewString(), agent)
	s.entries[sess.ID] = &sessionEntry{sess: sess, lastUsed: now}
	return sess
}

// get returns a live session and marks it used.
func (s *sessionStore) get(id string) (*generator.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(e.lastUsed) > s.ttl {
		delete(s.entries, id)
		return nil, false
	}
	e.lastUsed = now
	return e.sess, true
}

func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictLocked drops idle sessions, then the least recently used ones until
// one more fits.
func (s *sessionStore) evictLocked(now time.Time) {
	for id, e := range s.entries {
		if now.Sub(e.lastUsed) > s.ttl {
			delete(s.entries, id)
		}
	}
	for len(s.entries) >= s.max {
		var oldestID string
		var oldest time.Time
		for id, e := range s.entries {
			if oldestID == "" || e.lastUsed.Before(oldest) {
				oldestID, oldest = id, e.lastUsed
			}
		}
		delete(s.entries, oldestID)
	}
}

func New(agent *generator.Agent, st Store, opts Options) (*Server, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	if st == nil {
		return nil, errors.New("store required")
	}
	timeout := opts.GenerationTimeout
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	maxSessions := opts.MaxSessions
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &Server{
		agent:      agent,
		store:      st,
		sessions:   newSessionStore(ttl, maxSessions),
		genTimeout: timeout,
		log:        logger.OrNop(opts.Logger),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("POST /api/sessions/{id}/refine", s.handleSessionRefine)
	mux.HandleFunc("POST /api/hooks", s.handleHooks)
	mux.HandleFunc("POST /api/ctas", s.handleCTAs)

	mux.HandleFunc("GET /api/drafts", s.handleDraftList)
	mux.HandleFunc("POST /api/drafts", s.handleDraftCreate)
	mux.HandleFunc("DELETE /api/drafts/{id}", s.handleDraftDelete)
	mux.HandleFunc("GET /api/drafts/export", s.handleExport)

	mux.HandleFunc("GET /api/history", s.handleHistoryList)
	mux.HandleFunc("POST /api/history/{id}/favorite", s.handleHistoryFavorite)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleHistoryDelete)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.recoverMiddleware(s.requestMiddleware(mux))
}
