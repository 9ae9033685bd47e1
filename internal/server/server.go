// Package server exposes the engine's control surface as JSON over HTTP.
// Every route checks the environment allow-list before touching state, and
// every failure maps to a stable error code rather than a bare 500.
package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/bookwright/steward/internal/config"
	"github.com/bookwright/steward/internal/governance"
	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/override"
	"github.com/bookwright/steward/internal/replay"
	"github.com/bookwright/steward/internal/shadow"
	"github.com/bookwright/steward/internal/sim"
	"github.com/bookwright/steward/internal/store"
)

// Options wires the server's collaborators. Store may be nil; persistence
// then degrades to memory-only with a warning.
type Options struct {
	Engine     *sim.Engine
	Runner     *replay.Runner
	Governance *governance.Engine
	Overrides  *override.Log
	Comparator *shadow.Comparator
	Registry   *metrics.Registry
	Board      *metrics.Board
	Store      *store.Store
	Gate       config.Gate
	Logger     *slog.Logger
}

// Server is the HTTP control surface.
type Server struct {
	engine     *sim.Engine
	runner     *replay.Runner
	gov        *governance.Engine
	overrides  *override.Log
	comparator *shadow.Comparator
	registry   *metrics.Registry
	board      *metrics.Board
	store      *store.Store
	gate       config.Gate
	logger     *slog.Logger

	mu        sync.RWMutex
	decisions map[string]governance.Decision // by decision hash
}

// New builds a server from its collaborators.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:     opts.Engine,
		runner:     opts.Runner,
		gov:        opts.Governance,
		overrides:  opts.Overrides,
		comparator: opts.Comparator,
		registry:   opts.Registry,
		board:      opts.Board,
		store:      opts.Store,
		gate:       opts.Gate,
		logger:     logger,
		decisions:  make(map[string]governance.Decision),
	}
}

// Handler returns the routed handler. All routes pass through the
// environment gate.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/engine/start", s.handleStart)
	mux.HandleFunc("POST /v1/engine/stop", s.handleStop)
	mux.HandleFunc("POST /v1/engine/tick", s.handleTick)
	mux.HandleFunc("GET /v1/engine/status", s.handleStatus)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/proposals", s.handleProposals)
	mux.HandleFunc("GET /v1/metrics", s.handleMetrics)
	mux.HandleFunc("GET /v1/dials", s.handleDials)
	mux.HandleFunc("POST /v1/replays", s.handleStartReplay)
	mux.HandleFunc("GET /v1/replays/{id}", s.handleGetReplay)
	mux.HandleFunc("POST /v1/governance/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /v1/overrides", s.handleSubmitOverride)
	mux.HandleFunc("GET /v1/overrides/{proposalId}", s.handleOverrideTrail)
	mux.HandleFunc("POST /v1/shadow/compare", s.handleShadowCompare)

	return s.gated(mux)
}

// gated wraps the mux with the allow-list check.
func (s *Server) gated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.gate.Check(); err != nil {
			writeError(w, http.StatusForbidden, codeEnvForbidden, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rememberDecision keeps an evaluated decision addressable for override
// submission, and records it durably when a store is attached.
func (s *Server) rememberDecision(d governance.Decision) {
	s.mu.Lock()
	s.decisions[d.DecisionHash] = d
	s.mu.Unlock()
}

func (s *Server) decisionByHash(hash string) (governance.Decision, bool) {
	s.mu.RLock()
	d, ok := s.decisions[hash]
	s.mu.RUnlock()
	return d, ok
}
