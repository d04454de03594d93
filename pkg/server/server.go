package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/epsilon/pkg/accountant"
	"mercator-hq/epsilon/pkg/config"
	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/server/handlers"
	"mercator-hq/epsilon/pkg/server/middleware"
	"mercator-hq/epsilon/pkg/telemetry/health"
	"mercator-hq/epsilon/pkg/telemetry/metrics"
	"mercator-hq/epsilon/pkg/telemetry/tracing"
)

// Options carries the collaborators a Server exposes. Accountant is
// required; the rest may be nil.
type Options struct {
	Accountant *accountant.Accountant
	Ledger     ledger.Storage

	// Query bounds ledger page sizes.
	Query config.QueryConfig

	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	Health       *health.Checker
	HealthConfig config.HealthConfig
	Version      health.VersionInfo

	Logger *slog.Logger
}

// Server serves one Accountant over HTTP.
type Server struct {
	config     *config.ServerConfig
	opts       Options
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New builds a server and its handler chain.
func New(cfg *config.ServerConfig, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is nil")
	}
	if opts.Accountant == nil {
		return nil, errors.New("server requires an accountant")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		opts:   opts,
		logger: opts.Logger.With("component", "server"),
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Start listens on the configured address and serves until ctx is canceled
// or the server fails. It then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown gracefully stops the HTTP server within ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// setupRoutes registers the API, health and metrics routes and wraps them in
// the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	handlers.New(s.opts.Accountant, handlers.Options{
		Ledger:       s.opts.Ledger,
		Query:        s.opts.Query,
		MaxBodyBytes: s.config.MaxBodyBytes,
		Logger:       s.opts.Logger,
	}).Register(mux)

	if s.opts.Health != nil {
		health.Register(mux, s.opts.Health, s.opts.HealthConfig, s.opts.Version)
	}

	var handler http.Handler = mux
	handler = middleware.Timeout(s.config.WriteTimeout)(handler)
	handler = middleware.Logging(s.opts.Logger)(handler)

	if s.opts.Metrics != nil && s.opts.Metrics.Enabled() {
		handler = s.opts.Metrics.Middleware(handler)

		// mounted outside the metrics middleware so scrapes are not counted
		path := s.opts.Metrics.Path()
		inner := handler
		metricsHandler := s.opts.Metrics.Handler()
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path {
				metricsHandler.ServeHTTP(w, r)
				return
			}
			inner.ServeHTTP(w, r)
		})
	}
	if s.opts.Tracer != nil && s.opts.Tracer.Enabled() {
		handler = tracing.HTTPMiddleware(s.opts.Tracer)(handler)
	}

	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.opts.Logger)(handler)

	return handler
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the listening address once Start has bound it.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
