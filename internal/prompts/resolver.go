package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"text/template"
)

// Resolver resolves prompts with file overrides.
// Resolution order: Override > Embedded default
type Resolver struct {
	store    *Store
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a new prompt resolver. store may be nil.
func NewResolver(store *Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:    store,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt.
// This should be called during initialization by each prompt package.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Resolve returns the override for key if it exists, otherwise the embedded default.
func (r *Resolver) Resolve(ctx context.Context, key string) (*ResolvedPrompt, error) {
	if r.store != nil {
		override, err := r.store.Get(ctx, key)
		if err != nil {
			r.logger.Warn("failed to check prompt override", "key", key, "error", err)
			// Fall through to embedded default
		} else if override != nil {
			return &ResolvedPrompt{
				Key:        key,
				Text:       override.Text,
				Variables:  ExtractVariables(override.Text),
				IsOverride: true,
				Hash:       HashText(override.Text),
			}, nil
		}
	}

	r.mu.RLock()
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}

	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// Render resolves key and executes it against data.
func (r *Resolver) Render(ctx context.Context, key string, data any) (string, error) {
	p, err := r.Resolve(ctx, key)
	if err != nil {
		return "", err
	}
	out, err := Render(key, p.Text, data)
	if err != nil && p.IsOverride {
		r.logger.Warn("prompt override failed to render", "key", key, "error", err)
	}
	return out, err
}

// GetEmbedded returns the embedded default for a key.
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return &p, ok
}

// AllEmbedded returns all registered embedded prompts sorted by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Store returns the override store, which may be nil.
func (r *Resolver) Store() *Store {
	return r.store
}

// CheckOverride verifies that text can replace the embedded prompt for key:
// the key must be registered, the template must parse and it may only
// reference variables the embedded default provides.
func (r *Resolver) CheckOverride(key, text string) error {
	embedded, ok := r.GetEmbedded(key)
	if !ok {
		return fmt.Errorf("prompt not found: %s", key)
	}
	if _, err := template.New(key).Funcs(funcs).Parse(text); err != nil {
		return fmt.Errorf("parse prompt %s: %w", key, err)
	}
	known := make(map[string]bool, len(embedded.Variables))
	for _, v := range embedded.Variables {
		known[v] = true
	}
	for _, v := range ExtractVariables(text) {
		if !known[v] {
			return fmt.Errorf("prompt %s: unknown variable .%s", key, v)
		}
	}
	return nil
}
