package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry holds configured providers and the fallback order for each capability.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	configs    map[string]ProviderConfig
	textOrder  []string
	imageOrder []string
	chain      ChainSettings
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		configs:   make(map[string]ProviderConfig),
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers a provider by name, replacing any existing one.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
	delete(r.configs, name)
	if r.logger != nil {
		r.logger.Info("registered provider", "name", name)
	}
}

// Unregister removes a provider by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
	delete(r.configs, name)
	if r.logger != nil {
		r.logger.Info("unregistered provider", "name", name)
	}
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// Has checks if a provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetOrder sets the fallback order for text and image chains.
func (r *Registry) SetOrder(text, image []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textOrder = append([]string(nil), text...)
	r.imageOrder = append([]string(nil), image...)
}

// SetChainSettings sets per-capability timeouts and retry behaviour.
func (r *Registry) SetChainSettings(s ChainSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain = s
}

// TextChain builds a chain over the text order.
// Names that are not registered or cannot produce text are skipped.
func (r *Registry) TextChain() *Chain {
	return r.buildChain(CapText)
}

// ImageChain builds a chain over the image order.
func (r *Registry) ImageChain() *Chain {
	return r.buildChain(CapImage)
}

func (r *Registry) buildChain(capability Capability) *Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order := r.textOrder
	timeout := r.chain.TextTimeout
	if capability == CapImage {
		order = r.imageOrder
		timeout = r.chain.ImageTimeout
	}

	var selected []Provider
	for _, name := range order {
		p, ok := r.providers[name]
		if !ok {
			r.logger.Debug("skipping unregistered provider", "name", name, "capability", capability)
			continue
		}
		if !p.Supports(capability) {
			continue
		}
		selected = append(selected, p)
	}

	return NewChain(ChainConfig{
		Providers:  selected,
		Timeout:    timeout,
		Attempts:   r.chain.Attempts,
		RetryDelay: r.chain.RetryDelay,
		Logger:     r.logger,
	})
}

// ChainSettings configures chains built by the registry.
type ChainSettings struct {
	TextTimeout  time.Duration
	ImageTimeout time.Duration
	Attempts     uint
	RetryDelay   time.Duration
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	Providers  map[string]ProviderConfig
	TextOrder  []string
	ImageOrder []string
	Chain      ChainSettings
}

// ProviderConfig matches config.ProviderCfg with resolved API key.
type ProviderConfig struct {
	Type       string  // "openai", "groq", "pollinations", "mock"
	Model      string  // Text model, or image model for image-only providers
	ImageModel string  // Image model for providers offering both
	APIKey     string  // Resolved API key
	BaseURL    string  // Optional override
	RateLimit  float64 // Requests per second
	Enabled    bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.Providers {
		if !provCfg.Enabled || (provCfg.APIKey == "" && provCfg.Type != "mock") {
			continue
		}
		want[name] = true

		existing, hasExisting := r.configs[name]
		if hasExisting && existing == provCfg {
			continue
		}
		p := createProvider(name, provCfg)
		if p == nil {
			r.logger.Warn("unknown provider type", "name", name, "type", provCfg.Type)
			delete(want, name)
			continue
		}
		r.providers[name] = p
		r.configs[name] = provCfg
		if hasExisting {
			r.logger.Info("updated provider", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Info("registered provider", "name", name, "type", provCfg.Type)
		}
	}

	// Remove config-managed providers that are no longer configured.
	for name := range r.configs {
		if !want[name] {
			delete(r.providers, name)
			delete(r.configs, name)
			r.logger.Info("unregistered provider", "name", name)
		}
	}

	r.textOrder = append([]string(nil), cfg.TextOrder...)
	r.imageOrder = append([]string(nil), cfg.ImageOrder...)
	r.chain = cfg.Chain
}

// createProvider creates a provider based on provider type.
func createProvider(name string, cfg ProviderConfig) Provider {
	var p Provider
	switch cfg.Type {
	case "openai":
		p = NewOpenAIProvider(OpenAIConfig{
			Name:       name,
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			TextModel:  cfg.Model,
			ImageModel: cfg.ImageModel,
		})
	case "groq":
		gp := NewGroqProvider(cfg.APIKey, cfg.Model)
		gp.name = name
		p = gp
	case "pollinations":
		p = NewPollinationsProvider(PollinationsConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "mock":
		m := NewMockProvider()
		m.ProviderName = name
		p = m
	default:
		return nil
	}
	return NewRateLimited(p, cfg.RateLimit, 1)
}
