// Package storybook runs storybook generation jobs: request validation,
// submission to the worker pool, and the pipeline that turns a theme into
// one PDF per language.
package storybook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/guillermopickman-spec/story-booker/internal/characters"
	"github.com/guillermopickman-spec/story-booker/internal/home"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/artdirector"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/cast"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/localize"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/story"
)

// RegisterPrompts registers every embedded prompt the pipeline renders.
func RegisterPrompts(r *prompts.Resolver) {
	story.RegisterPrompts(r)
	cast.RegisterPrompts(r)
	artdirector.RegisterPrompts(r)
	localize.RegisterPrompts(r)
}

// Config wires a Service.
type Config struct {
	Home       *home.Dir
	Jobs       *jobs.MemoryStore
	Pool       *jobs.Pool // Optional; Submit fails without one
	Providers  characters.ProviderSource
	Prompts    *prompts.Resolver
	Characters characters.Store
	Cache      *characters.ReferenceCache
	Settings   Settings
	Logger     *slog.Logger
}

// Service accepts generation requests and runs them.
type Service struct {
	home       *home.Dir
	jobs       *jobs.MemoryStore
	pool       *jobs.Pool
	providers  characters.ProviderSource
	prompts    *prompts.Resolver
	characters characters.Store
	cache      *characters.ReferenceCache
	logger     *slog.Logger

	mu       sync.RWMutex
	settings Settings
}

// NewService creates a service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Home == nil || cfg.Jobs == nil || cfg.Providers == nil {
		return nil, fmt.Errorf("storybook service requires home, jobs and providers")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewResolver(nil, cfg.Logger)
	}
	RegisterPrompts(cfg.Prompts)
	if cfg.Cache == nil {
		cfg.Cache = characters.NewReferenceCache(0)
	}
	if cfg.Settings.DefaultPages == 0 {
		cfg.Settings = DefaultSettings()
	}
	return &Service{
		home:       cfg.Home,
		jobs:       cfg.Jobs,
		pool:       cfg.Pool,
		providers:  cfg.Providers,
		prompts:    cfg.Prompts,
		characters: cfg.Characters,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		settings:   cfg.Settings,
	}, nil
}

// Settings returns the settings new jobs will use.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings replaces the settings for jobs submitted from now on.
func (s *Service) SetSettings(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.logger.Info("pipeline settings updated", "trim", settings.Layout.Trim.Name, "dpi", settings.DPI)
}

// Jobs returns the job store.
func (s *Service) Jobs() *jobs.MemoryStore {
	return s.jobs
}

// Create validates req and records a pending job without scheduling it.
func (s *Service) Create(ctx context.Context, req GenerateRequest) (*jobs.Job, Settings, error) {
	settings := s.Settings()
	normalized, err := normalize(ctx, req, settings, s.characters)
	if err != nil {
		return nil, settings, err
	}
	return s.jobs.Create(normalized), settings, nil
}

// Submit validates req, records a pending job and hands it to the pool.
// Validation failures return a *ValidationError and create no job.
func (s *Service) Submit(ctx context.Context, req GenerateRequest) (*jobs.Job, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("storybook service has no worker pool")
	}
	job, settings, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	task := jobs.Task{JobID: job.ID, Run: func(ctx context.Context) {
		s.Run(ctx, job.ID, settings)
	}}
	if err := s.pool.Submit(task); err != nil {
		_ = s.jobs.Fail(job.ID, err)
		return nil, err
	}
	s.logger.Info("job submitted", "job_id", job.ID, "pages", job.Request.Pages, "languages", job.Request.Languages, "pod_ready", job.Request.PODReady)
	return job, nil
}

// Run executes a job's pipeline in the calling goroutine. Every failure
// ends in the failed state; Run never returns an error.
func (s *Service) Run(ctx context.Context, jobID string, settings Settings) {
	tracker := s.jobs.Tracker(jobID)
	defer func() {
		if r := recover(); r != nil {
			tracker.Fail(fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	job, err := s.jobs.Get(jobID)
	if err != nil {
		s.logger.Error("run unknown job", "job_id", jobID, "error", err)
		return
	}
	p := s.newPipeline(job, settings, tracker)
	outputs, err := p.run(ctx)
	if err != nil {
		tracker.Fail(err)
		return
	}
	if err := tracker.Complete(outputs); err != nil {
		tracker.Fail(err)
	}
}

// ForgetCharacter drops cached reference images for a character that was
// updated or deleted.
func (s *Service) ForgetCharacter(id string) {
	s.cache.Forget(characters.NormalizeID(id))
}
