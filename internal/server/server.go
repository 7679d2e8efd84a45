// Package server provides the HTTP API for Kiji.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/newsdesk/kiji/internal/config"
	"github.com/newsdesk/kiji/internal/ingest"
	"github.com/newsdesk/kiji/internal/keyword"
	"github.com/newsdesk/kiji/internal/rag"
	"github.com/newsdesk/kiji/internal/storage"
	"github.com/newsdesk/kiji/internal/summary"
)

// WatchService is the part of the spool watcher the API exposes.
// *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the Kiji API.
type Server struct {
	pipeline *rag.Pipeline
	ingestor *ingest.Ingestor
	storage  storage.Storage
	keywords keyword.KeywordIndex
	router   *summary.Router
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server

	// Watch support is optional; nil when no spool directories are configured.
	watch      WatchService
	configPath string
	configMu   sync.Mutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithWatcher enables the spool watch API. configPath, when non-empty, is
// where directory add/remove changes are persisted.
func WithWatcher(w WatchService, configPath string) ServerOption {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies. router may be nil
// when no summarization providers are configured; the summary and ask
// endpoints then report unavailability.
func NewServer(
	pipeline *rag.Pipeline,
	ingestor *ingest.Ingestor,
	store storage.Storage,
	keywords keyword.KeywordIndex,
	router *summary.Router,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		pipeline: pipeline,
		ingestor: ingestor,
		storage:  store,
		keywords: keywords,
		router:   router,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the chi router with all API endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/articles", s.handleIngestArticle)
	r.Get("/api/v1/articles", s.handleListArticles)
	r.Get("/api/v1/articles/search", s.handleKeywordSearch)
	r.Get("/api/v1/articles/{id}", s.handleGetArticle)
	r.Delete("/api/v1/articles/{id}", s.handleDeleteArticle)
	r.Post("/api/v1/articles/{id}/summary", s.handleSummarizeArticle)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
