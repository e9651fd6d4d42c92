package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/characters"
	"github.com/guillermopickman-spec/story-booker/internal/config"
	"github.com/guillermopickman-spec/story-booker/internal/home"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/jobs/storybook"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
	"github.com/guillermopickman-spec/story-booker/internal/server/endpoints"
	"github.com/guillermopickman-spec/story-booker/internal/svcctx"
)

const shutdownTimeout = 30 * time.Second

// Server is the storybooker HTTP server. It owns the worker pool that runs
// generation jobs and stops it on shutdown.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	characters characters.Store
	pool       *jobs.Pool
	logger     *slog.Logger

	services         *svcctx.Services
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	listener net.Listener
}

// Config holds server configuration.
type Config struct {
	// Host and Port override the server section of the config.
	Host string
	Port string

	// Home is the storybooker home directory. Required.
	Home *home.Dir

	// ConfigManager provides configuration with hot-reload support.
	// Defaults are used when nil.
	ConfigManager *config.Manager

	// Registry replaces the provider registry built from config.
	Registry *providers.Registry

	Logger *slog.Logger
}

// New wires every service from configuration. Nothing runs until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Home == nil {
		return nil, errors.New("server requires a home directory")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger

	appCfg := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}

	if err := cfg.Home.EnsureExists(); err != nil {
		return nil, err
	}

	registry := cfg.Registry
	ownRegistry := registry == nil
	if ownRegistry {
		registry = providers.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(appCfg.ToProviderRegistryConfig())
	}

	settings, err := storybook.SettingsFromConfig(appCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	dbPath := appCfg.Characters.DatabasePath
	if dbPath == "" {
		dbPath = cfg.Home.DatabasePath()
	}
	store, err := characters.OpenStore(appCfg.Characters.Backend, cfg.Home.CharactersDir(), dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open character store: %w", err)
	}

	resolver := prompts.NewResolver(prompts.NewStore(cfg.Home.PromptsDir(), logger), logger)
	jobStore := jobs.NewMemoryStore(logger)
	pool := jobs.NewPool(jobs.PoolConfig{
		Name:      "storybook",
		Logger:    logger,
		Workers:   appCfg.Pipeline.Workers,
		QueueSize: appCfg.Pipeline.QueueSize,
	})

	svc, err := storybook.NewService(storybook.Config{
		Home:       cfg.Home,
		Jobs:       jobStore,
		Pool:       pool,
		Providers:  registry,
		Prompts:    resolver,
		Characters: store,
		Settings:   settings,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			if ownRegistry {
				registry.Reload(c.ToProviderRegistryConfig())
				logger.Info("provider registry reloaded from config")
			}
			next, err := storybook.SettingsFromConfig(c)
			if err != nil {
				logger.Warn("ignoring invalid pipeline config", "error", err)
				return
			}
			svc.SetSettings(next)
		})
	}

	s := &Server{
		registry:   registry,
		characters: store,
		pool:       pool,
		logger:     logger,
		services: &svcctx.Services{
			Config:     cfg.ConfigManager,
			Home:       cfg.Home,
			Registry:   registry,
			Prompts:    resolver,
			Characters: store,
			Jobs:       jobStore,
			Pool:       pool,
			Storybook:  svc,
			Logger:     logger,
		},
	}

	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(s.logRequests(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// Start runs the worker pool and the HTTP server. It blocks until ctx is
// cancelled or the listener fails, then shuts both down.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.running = true
	s.listener = ln
	s.mu.Unlock()

	poolCtx, stopPool := context.WithCancel(ctx)
	poolDone := make(chan struct{})
	go func() {
		s.pool.Start(poolCtx)
		close(poolDone)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("HTTP server error: %w", err)
		}
	}

	s.shutdown(stopPool, poolDone)
	return serveErr
}

// shutdown stops accepting requests, then stops the pool and waits for
// running jobs to observe cancellation.
func (s *Server) shutdown(stopPool context.CancelFunc, poolDone <-chan struct{}) {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	stopPool()
	select {
	case <-poolDone:
	case <-shutdownCtx.Done():
		s.logger.Warn("worker pool did not stop in time", "in_flight", s.pool.Status().InFlight)
	}

	if c, ok := s.characters.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Error("character store close error", "error", err)
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("server stopped")
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Services returns the services attached to every request.
func (s *Server) Services() *svcctx.Services {
	return s.services
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
