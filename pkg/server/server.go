package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"waterwatch-hq/healthimpact/pkg/api/middleware"
	"waterwatch-hq/healthimpact/pkg/assessment"
	"waterwatch-hq/healthimpact/pkg/catalog"
	"waterwatch-hq/healthimpact/pkg/config"
	"waterwatch-hq/healthimpact/pkg/healthrules/source"
	"waterwatch-hq/healthimpact/pkg/telemetry/health"
	"waterwatch-hq/healthimpact/pkg/telemetry/metrics"
	"waterwatch-hq/healthimpact/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options configures New.
type Options struct {
	// Config is required and should already be validated.
	Config *config.Config

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	Build BuildInfo

	// TracingOptions are passed to tracing.New, mainly for tests.
	TracingOptions []tracing.Option
}

// Server is the health impact HTTP service.
type Server struct {
	config *config.Config
	logger *slog.Logger
	build  BuildInfo

	engine    *assessment.Engine
	reloader  *source.Reloader
	scheduler  *source.Scheduler
	watcher    *source.FileWatcher
	gitWatcher *source.GitWatcher
	catalog    catalog.Storage
	metrics    *metrics.Collector
	tracer     *tracing.Tracer
	health     *health.Checker
	limiter    *middleware.RateLimiter

	handler    http.Handler
	httpServer *http.Server

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	closeOnce    sync.Once
	mu           sync.RWMutex
	isRunning    bool
	bgWG         sync.WaitGroup
}

// New builds every component of the service. Nothing listens until Start
// or Serve is called; Close releases the components if neither ever runs.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server config is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:       opts.Config,
		logger:       logger.With("component", "server"),
		build:        opts.Build,
		shutdownChan: make(chan struct{}),
	}

	if err := s.assemble(ctx, logger, opts.TracingOptions); err != nil {
		s.Close()
		return nil, err
	}
	s.handler = s.setupRoutes(logger)
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Engine returns the evaluation engine.
func (s *Server) Engine() *assessment.Engine {
	return s.engine
}

// Reloader returns the rule reloader.
func (s *Server) Reloader() *source.Reloader {
	return s.reloader
}

// Start listens on the configured address and serves until ctx is
// cancelled, RequestShutdown is called or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Unlock()

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()
	if err := s.startBackground(bgCtx); err != nil {
		_ = ln.Close()
		_ = s.Shutdown(context.Background())
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting health impact server",
			"address", ln.Addr().String(),
			"version", s.build.Version,
			"rules_version", s.engine.Rules().Version(),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// RequestShutdown asks a running Serve to stop.
func (s *Server) RequestShutdown() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown stops accepting requests, waits for in-flight ones up to the
// configured shutdown timeout and releases every component.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.release(shutdownCtx)

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("health impact server stopped")
	})

	return shutdownErr
}

// Close stops the rule watchers and scheduler, flushes the tracer and
// releases the catalog and rate limiter. It is safe to call more than once
// and is called by Shutdown.
func (s *Server) Close() {
	ctx := context.Background()
	if timeout := s.config.Server.ShutdownTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s.release(ctx)
}

func (s *Server) release(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.stopBackground()
		if s.tracer != nil {
			if err := s.tracer.Shutdown(ctx); err != nil {
				s.logger.Warn("tracer shutdown failed", "error", err)
			}
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		if s.catalog != nil {
			if err := s.catalog.Close(); err != nil {
				s.logger.Warn("catalog close failed", "error", err)
			}
		}
	})
}

// IsRunning reports whether Serve is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// startBackground starts the rule file watcher, the rules repository poller
// and the reload scheduler.
func (s *Server) startBackground(ctx context.Context) error {
	if s.scheduler != nil {
		if err := s.scheduler.Start(ctx); err != nil {
			return err
		}
	}
	if s.gitWatcher != nil {
		if err := s.gitWatcher.Start(ctx); err != nil {
			return err
		}
	}
	if s.watcher != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			err := s.watcher.Watch(ctx, func() error {
				_, err := s.reloader.Reload(ctx)
				return err
			})
			if err != nil {
				s.logger.Error("rule file watcher exited", "error", err)
			}
		}()
	}
	return nil
}

func (s *Server) stopBackground() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.gitWatcher != nil {
		s.gitWatcher.Stop()
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("rule file watcher stop failed", "error", err)
		}
	}
	s.bgWG.Wait()
}
