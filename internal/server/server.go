// Package server exposes the generation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/gnemet/slidegen/internal/config"
	"github.com/gnemet/slidegen/internal/pipeline"
	"github.com/gnemet/slidegen/internal/templates"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Service
	library  *templates.Library
	limiter  *clientLimiter
	logger   *slog.Logger
	now      func() time.Time
}

// New wires the handlers. library may be nil when no template directory is
// configured.
func New(cfg *config.Config, svc *pipeline.Service, library *templates.Library, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		pipeline: svc,
		library:  library,
		logger:   logger.With("component", "http"),
		now:      time.Now,
	}
	if cfg.Application.RateLimit.Enabled() {
		s.limiter = newClientLimiter(cfg.Application.RateLimit)
	}
	return s
}

// Handler returns the router wrapped in the middleware chain:
// recovery, request id, logging, CORS, rate limiting.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/providers", s.handleProviders).Methods(http.MethodGet)
	r.HandleFunc("/api/templates", s.handleTemplates).Methods(http.MethodGet)
	r.HandleFunc("/api/analyze", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/generate-pptx", s.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/api/preview", s.handlePreview).Methods(http.MethodPost)

	// Anything else is a static file or the JSON 404.
	r.PathPrefix("/").Handler(s.staticFiles(s.cfg.Application.StaticDir))
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Application.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	})

	var handler http.Handler = r
	handler = s.rateLimitMiddleware(handler)
	handler = c.Handler(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Application.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		// generation waits on the provider, so leave room beyond its timeout
		WriteTimeout: s.cfg.AI.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
