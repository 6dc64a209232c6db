package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"alertscope/internal/clients/elasticsearch"
	"alertscope/internal/config"
	"alertscope/internal/metrics"
	"alertscope/internal/normalize"
	"alertscope/internal/orchestrator"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg     *config.Config
	srv     *http.Server
	handler *Handler
	logger  *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.New()

	// Initialize clients
	esClient, err := elasticsearch.NewClient(elasticsearch.Options{
		Hosts:    cfg.Elasticsearch.Hosts,
		Username: cfg.Elasticsearch.Username,
		Password: cfg.Elasticsearch.Password,
		Timeout:  cfg.Elasticsearch.GetTimeoutDuration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	scroller := elasticsearch.NewScroller(esClient, elasticsearch.ScrollOptions{
		Index:    cfg.Elasticsearch.Index,
		PageSize: cfg.Elasticsearch.PageSize,
		TTL:      cfg.Elasticsearch.GetScrollTTLDuration(),
	}, m, logger)
	mapper := normalize.NewMapper(cfg.Alerts.URLTemplate, logger)

	// Initialize orchestrator
	orch := orchestrator.New(esClient, scroller, mapper, orchestrator.Options{
		Index:           cfg.Elasticsearch.Index,
		AggregationSize: cfg.Elasticsearch.AggregationSize,
	}, logger)

	handler := NewHandler(cfg, orch, m, logger)
	router := SetupRouter(handler)

	// Full scans may take as long as the backend timeout allows.
	srv := &http.Server{
		Addr:         cfg.App.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Elasticsearch.GetTimeoutDuration() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		cfg:     cfg,
		srv:     srv,
		handler: handler,
		logger:  logger,
	}, nil
}

// Start starts the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("Server listening", "address", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.srv.Shutdown(ctx)
}
