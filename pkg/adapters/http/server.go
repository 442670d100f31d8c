package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the runtime surface served under /start, /instance and /runtime.
type Engine interface {
	StartInstance(ctx context.Context, formID int64, userID string) (*domain.Instance, error)
	CurrentStep(ctx context.Context, instanceID int64) (*domain.StepView, error)
	SubmitStep(ctx context.Context, instanceID int64, answers []domain.AnswerInput) (*domain.SubmitResult, error)
	OpenStep(ctx context.Context, formCode string, instanceID int64, stepCode string) (*domain.StepView, error)
	UpdateStep(ctx context.Context, formCode string, instanceID int64, stepCode string, answers []domain.AnswerInput) (*domain.StepView, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handlers' dependencies.
type Server struct {
	engine  Engine
	admin   *authoring.Service
	metrics *observability.Metrics
	health  []Pinger
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAdmin mounts the authoring API under /admin.
func WithAdmin(svc *authoring.Service) Option {
	return func(s *Server) {
		s.admin = svc
	}
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHealthChecks adds backends pinged by /health.
func WithHealthChecks(checks ...Pinger) Option {
	return func(s *Server) {
		s.health = append(s.health, checks...)
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.instrument)
	}

	r.Get("/health", s.getHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Post("/start", s.start)
	r.Route("/instance/{instanceID}", func(r chi.Router) {
		r.Get("/", s.currentStep)
		r.Post("/submit", s.submit)
	})
	r.Route("/runtime/forms/{formCode}/sessions/{instanceID}/steps/{stepCode}", func(r chi.Router) {
		r.Get("/", s.openStep)
		r.Put("/", s.updateStep)
	})

	if s.admin != nil {
		r.Route("/admin", s.adminRoutes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, domain.NotFoundf("route", "no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.problem(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed")
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records one observation per request, labelled by the matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	for _, p := range s.health {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
