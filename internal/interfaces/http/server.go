// Package http exposes the scoring service over REST. All routing,
// middleware, and wire-format concerns live here; handlers delegate to the
// core packages and translate their errors to status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dygsom/fraudscore/internal/auth"
	"github.com/dygsom/fraudscore/internal/cache"
	"github.com/dygsom/fraudscore/internal/config"
	"github.com/dygsom/fraudscore/internal/metrics"
	"github.com/dygsom/fraudscore/internal/persistence"
	"github.com/dygsom/fraudscore/internal/ratelimit"
	"github.com/dygsom/fraudscore/internal/scoring"
)

// readyProbeTimeout bounds each dependency check in the readiness probe.
const readyProbeTimeout = 2 * time.Second

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Scorer    *scoring.Orchestrator
	Auth      *auth.Authenticator
	Limiter   *ratelimit.Limiter
	IPLimiter *ratelimit.IPLimiter
	TxRepo    persistence.TransactionRepo
	DB        persistence.Pinger
	Cache     *cache.TwoTier
	Metrics   *metrics.Registry
}

// Server is the HTTP front end.
type Server struct {
	cfg    *config.Config
	deps   Deps
	router *mux.Router
	server *http.Server
}

// NewServer wires routes and middleware and returns a server ready to start.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: mux.NewRouter(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	// Middleware for all routes, outermost first.
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.timeoutMiddleware)

	// Unauthenticated surface: probes and the scrape endpoint.
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/health/ready", s.handleReady).Methods("GET")
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Authenticated, rate-limited API surface.
	api := s.router.PathPrefix("/api/v1/fraud").Subrouter()
	api.Use(s.authMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/score", s.handleScore).Methods("POST")
	api.HandleFunc("/transaction/{transaction_id}", s.handleTransaction).Methods("GET")
	api.HandleFunc("/statistics/risk", s.handleRiskStatistics).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
