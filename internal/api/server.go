package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/blogfeed"
	"github.com/vedicportal/portal/internal/config"
	"github.com/vedicportal/portal/internal/logging"
	"github.com/vedicportal/portal/internal/metrics"
	"github.com/vedicportal/portal/internal/portal"
	"github.com/vedicportal/portal/internal/pradipika"
)

const (
	requestTimeout = 60 * time.Second
	readyTimeout   = 2 * time.Second
)

// BlogService serves the blog list.
type BlogService interface {
	Read(ctx context.Context, limit int, refresh bool) (blogfeed.Result, error)
	Refresh(ctx context.Context) ([]portal.BlogEntry, error)
}

// IssueService serves magazine issues.
type IssueService interface {
	Sync(ctx context.Context) (pradipika.SyncResult, error)
	Count(ctx context.Context) (int, error)
	Live(ctx context.Context) ([]portal.IssueRecord, portal.Source, error)
	List(ctx context.Context, filter portal.IssueFilter) (pradipika.Listing, error)
	Get(ctx context.Context, key string) (pradipika.Detail, error)
}

// Server wires HTTP handlers to the blog and issue services.
type Server struct {
	router chi.Router
	blogs  BlogService
	issues IssueService
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(blogs BlogService, issues IssueService, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		blogs:  blogs,
		issues: issues,
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	mutating := func(r chi.Router) chi.Router { return r }
	if cfg.Auth.Enabled {
		mutating = func(r chi.Router) chi.Router { return r.With(apiKeyMiddleware(cfg.Auth.APIKey)) }
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/blogs", s.getBlogs)
		mutating(r).Post("/blogs", s.refreshBlogs)

		r.Route("/pradipika", func(r chi.Router) {
			r.Get("/", s.liveIssues)
			r.Get("/list", s.listIssues)
			r.Get("/sync", s.syncStatus)
			mutating(r).Post("/sync", s.syncIssues)
			r.Get("/{id}", s.getIssue)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready once the issue store answers.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if _, err := s.issues.Count(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
