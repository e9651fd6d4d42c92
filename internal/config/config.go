package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

// EnvPrefix is prepended to environment overrides, e.g. STORYBOOKER_SERVER_PORT.
const EnvPrefix = "STORYBOOKER"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// homePath, when set, is searched for config.yaml after the working directory.
func NewManager(cfgFile string, homePath ...string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile, homePath...); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string, homePath ...string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("providers", providerDefaults(defaults.Providers))
	setSectionDefaults(v, "defaults", defaults.Defaults)
	setSectionDefaults(v, "pipeline", defaults.Pipeline)
	setSectionDefaults(v, "characters", defaults.Characters)
	setSectionDefaults(v, "server", defaults.Server)

	// Environment variables with STORYBOOKER_ prefix; nested keys use underscores.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, p := range homePath {
			if p != "" {
				v.AddConfigPath(p)
			}
		}
		v.AddConfigPath("$HOME/.storybooker")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setSectionDefaults registers one default per leaf key so that
// environment overrides like STORYBOOKER_PIPELINE_DPI are picked up.
func setSectionDefaults(v *viper.Viper, section string, value any) {
	data, err := yaml.Marshal(value)
	if err != nil {
		v.SetDefault(section, value)
		return
	}
	var leaves map[string]any
	if err := yaml.Unmarshal(data, &leaves); err != nil {
		v.SetDefault(section, value)
		return
	}
	for key, leaf := range leaves {
		v.SetDefault(section+"."+key, leaf)
	}
}

func providerDefaults(in map[string]ProviderCfg) map[string]any {
	out := make(map[string]any, len(in))
	for name, p := range in {
		out[name] = map[string]any{
			"type":        p.Type,
			"model":       p.Model,
			"image_model": p.ImageModel,
			"api_key":     p.APIKey,
			"base_url":    p.BaseURL,
			"rate_limit":  p.RateLimit,
			"enabled":     p.Enabled,
		}
	}
	return out
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		Providers:  make(map[string]providers.ProviderConfig, len(c.Providers)),
		TextOrder:  append([]string(nil), c.Defaults.TextProviders...),
		ImageOrder: append([]string(nil), c.Defaults.ImageProviders...),
		Chain: providers.ChainSettings{
			TextTimeout:  time.Duration(c.Defaults.TextTimeoutSeconds) * time.Second,
			ImageTimeout: time.Duration(c.Defaults.ImageTimeoutSeconds) * time.Second,
			Attempts:     uint(max(c.Defaults.Attempts, 1)),
			RetryDelay:   time.Duration(c.Defaults.RetryDelayMillis) * time.Millisecond,
		},
	}

	for name, p := range c.Providers {
		cfg.Providers[name] = providers.ProviderConfig{
			Type:       p.Type,
			Model:      p.Model,
			ImageModel: p.ImageModel,
			APIKey:     ResolveEnvVars(p.APIKey),
			BaseURL:    p.BaseURL,
			RateLimit:  p.RateLimit,
			Enabled:    p.Enabled,
		}
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Storybooker configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell (or .env): export GROQ_API_KEY=xxx OPENAI_API_KEY=xxx POLLINATIONS_API_KEY=xxx
# Any key can be overridden with STORYBOOKER_<SECTION>_<KEY>, e.g. STORYBOOKER_SERVER_PORT=9090

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
