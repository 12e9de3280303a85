package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/qscan/internal/config"
	"github.com/QTest-hq/qscan/internal/scanner"
)

// Server serves analysis reports for one project root
type Server struct {
	cfg     *config.Config
	root    string
	scanner *scanner.Scanner
	router  *chi.Mux
}

// NewServer creates a new API server for root
func NewServer(cfg *config.Config, root string, opts scanner.Options) (*Server, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %s", scanner.ErrRootNotFound, root)
	}

	s := &Server{
		cfg:     cfg,
		root:    root,
		scanner: scanner.New(opts),
		router:  chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/files", s.listFiles)
		r.Get("/report", s.getReport)
		r.Get("/report.html", s.getHTMLReport)
		r.Get("/complexity", s.getComplexity)
	})
}

// Health check handlers
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.root); err != nil {
		respondError(w, http.StatusServiceUnavailable, "project root is not accessible")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
