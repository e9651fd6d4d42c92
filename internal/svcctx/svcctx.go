// Package svcctx carries the running services through request contexts.
// It is separate from server so endpoints can import it without a cycle.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/guillermopickman-spec/story-booker/internal/characters"
	"github.com/guillermopickman-spec/story-booker/internal/config"
	"github.com/guillermopickman-spec/story-booker/internal/home"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/jobs/storybook"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

// Services holds everything handlers reach for.
type Services struct {
	Config     *config.Manager
	Home       *home.Dir
	Registry   *providers.Registry
	Prompts    *prompts.Resolver
	Characters characters.Store
	Jobs       *jobs.MemoryStore
	Pool       *jobs.Pool
	Storybook  *storybook.Service
	Logger     *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StorybookFrom extracts the generation service.
func StorybookFrom(ctx context.Context) *storybook.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Storybook
	}
	return nil
}

// JobsFrom extracts the job store.
func JobsFrom(ctx context.Context) *jobs.MemoryStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.Jobs
	}
	return nil
}

// PoolFrom extracts the worker pool.
func PoolFrom(ctx context.Context) *jobs.Pool {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pool
	}
	return nil
}

// CharactersFrom extracts the character store.
func CharactersFrom(ctx context.Context) characters.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Characters
	}
	return nil
}

// RegistryFrom extracts the provider registry.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// PromptResolverFrom extracts the prompt resolver.
func PromptResolverFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// LoggerFrom extracts the logger, falling back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
