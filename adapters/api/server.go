// Package api exposes the assessment service over HTTP. Handlers translate
// wire requests into service calls and domain errors into status codes; no
// assessment logic lives here.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"adaptiq/app"
	"adaptiq/internal"
	"adaptiq/internal/readiness"
)

// Server wires the HTTP routes onto the assessment service
type Server struct {
	router     *chi.Mux
	assessment *app.AssessmentService
	readiness  *readiness.Evaluator
	logger     *internal.Logger
}

// NewServer creates the HTTP server with routes and middleware configured
func NewServer(assessment *app.AssessmentService, readinessEval *readiness.Evaluator, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:     chi.NewRouter(),
		assessment: assessment,
		readiness:  readinessEval,
		logger:     logger.WithPrefix("api:"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/readiness", s.handleReadiness)

	s.router.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleBeginSession)
		r.Post("/{sessionID}/responses", s.handleSubmitResponse)
		r.Get("/{sessionID}/progress", s.handleGetProgress)
		r.Get("/{sessionID}/result", s.handleGetResult)
	})
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}
