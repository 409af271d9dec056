package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Kushall-07/Ai-tower/internal/agent"
	"github.com/Kushall-07/Ai-tower/internal/dataset"
	"github.com/Kushall-07/Ai-tower/internal/otel"
	"github.com/Kushall-07/Ai-tower/internal/policy"
	"github.com/Kushall-07/Ai-tower/internal/store"
)

const defaultTimeout = 60 * time.Second

// Server holds all dependencies for the HTTP API.
type Server struct {
	router      *chi.Mux
	runner      *agent.Runner
	store       *store.Store
	policy      *policy.Policy
	datasets    *dataset.Service
	apiKeys     map[string]string
	corsOrigins []string
	limiter     *callerLimiter
	startTime   time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithDatasets enables the data endpoints.
func WithDatasets(d *dataset.Service) Option {
	return func(s *Server) { s.datasets = d }
}

// WithCORSOrigins sets allowed CORS origins (e.g. ["*"] for MVP).
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithRateLimit caps per-caller request throughput in requests per second.
func WithRateLimit(rps int) Option {
	return func(s *Server) { s.limiter = newCallerLimiter(rps) }
}

// NewServer builds a Server with the required dependencies and optional
// Option(s). apiKeys maps client key -> caller name; an empty map disables
// authentication (development mode).
func NewServer(
	runner *agent.Runner,
	st *store.Store,
	pol *policy.Policy,
	apiKeys map[string]string,
	opts ...Option,
) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		runner:      runner,
		store:       st,
		policy:      pol,
		apiKeys:     apiKeys,
		corsOrigins: []string{"*"},
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.apiKeys == nil {
		s.apiKeys = make(map[string]string)
	}
	return s
}

// Routes returns the configured http.Handler (chi router with all
// middleware and routes).
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.MiddlewareWithStatus())
	r.Use(CORSMiddleware(s.corsOrigins))

	// Unauthenticated
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	// Authenticated API group
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKeys))
		r.Use(RateLimitMiddleware(s.limiter))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Post("/v1/agent/run", s.handleAgentRun)

		r.Get("/v1/logs/recent", s.handleLogsRecent)
		r.Get("/v1/logs/analytics", s.handleLogsAnalytics)
		r.Get("/v1/runs/{id}", s.handleRunGet)
		r.Get("/v1/runs/{id}/verify", s.handleRunVerify)

		r.Get("/v1/approvals/pending", s.handleApprovalsPending)
		r.Get("/v1/approvals/all", s.handleApprovalsAll)
		r.Post("/v1/approvals/{id}/approve", s.handleApprovalApprove)
		r.Post("/v1/approvals/{id}/reject", s.handleApprovalReject)

		r.Post("/v1/actions/simulate", s.handleActionSimulate)
		r.Get("/v1/actions/by-run/{id}", s.handleActionsByRun)
		r.Get("/v1/actions/all", s.handleActionsAll)
		r.Post("/v1/actions/{id}/execute", s.handleActionExecute)
		r.Post("/v1/actions/{id}/cancel", s.handleActionCancel)

		r.Get("/v1/policy", s.handlePolicyGet)

		if s.datasets != nil {
			r.Get("/v1/data/sources", s.handleDataSources)
			r.Get("/v1/data/datasets", s.handleDataDatasets)
			r.Post("/v1/data/query", s.handleDataQuery)
		}
	})

	return r
}
