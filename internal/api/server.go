package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazlijohar95/bankfeed/internal/api/handlers"
	"github.com/hazlijohar95/bankfeed/internal/api/middleware"
	"github.com/hazlijohar95/bankfeed/internal/application/reconcile"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	service    *reconcile.Service
}

// NewServer creates a new API server.
func NewServer(cfg Config, repo storage.Repository, service *reconcile.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		logger:  logger,
		repo:    repo,
		service: service,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.OwnerHeader},
	}
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	// API routes, all tenant-scoped
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireOwner())

		transactionsHandler := handlers.NewTransactionsHandler(s.repo, s.service)
		matchingHandler := handlers.NewMatchingHandler(s.repo, s.service)
		r.Route("/bank-transactions", func(r chi.Router) {
			r.Get("/", transactionsHandler.List)
			r.Get("/stats", transactionsHandler.Stats)
			r.Post("/import", transactionsHandler.Import)
			r.Post("/auto-match", matchingHandler.AutoMatch)
			r.Get("/{id}", transactionsHandler.Get)
			r.Get("/{id}/suggestions", matchingHandler.Suggestions)
			r.Post("/{id}/match", matchingHandler.Match)
			r.Post("/{id}/accept", matchingHandler.Accept)
			r.Post("/{id}/reject", matchingHandler.Reject)
			r.Post("/{id}/exclude", matchingHandler.Exclude)
			r.Post("/{id}/reconcile", matchingHandler.Reconcile)
		})

		rulesHandler := handlers.NewRulesHandler(s.repo, s.service)
		r.Route("/matching-rules", func(r chi.Router) {
			r.Get("/", rulesHandler.List)
			r.Post("/", rulesHandler.Create)
			r.Delete("/{id}", rulesHandler.Delete)
		})

		categoriesHandler := handlers.NewCategoriesHandler(s.repo)
		r.Get("/categories", categoriesHandler.List)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
