package config

// Config holds storybooker configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Providers  map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults   DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Pipeline   PipelineCfg            `mapstructure:"pipeline" yaml:"pipeline"`
	Characters CharactersCfg          `mapstructure:"characters" yaml:"characters"`
	Server     ServerCfg              `mapstructure:"server" yaml:"server"`
}

// ProviderCfg configures a text and/or image provider.
// Type is one of "openai", "groq", "pollinations" or "mock". Model is the
// text model, except for pollinations where it names the image model.
// APIKey supports ${ENV_VAR} syntax.
type ProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"`
	Model      string  `mapstructure:"model" yaml:"model,omitempty"`
	ImageModel string  `mapstructure:"image_model" yaml:"image_model,omitempty"`
	APIKey     string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"` // Requests per second
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies provider order and request defaults.
type DefaultsCfg struct {
	TextProviders       []string `mapstructure:"text_providers" yaml:"text_providers"`   // Ordered fallback list
	ImageProviders      []string `mapstructure:"image_providers" yaml:"image_providers"` // Ordered fallback list
	Style               string   `mapstructure:"style" yaml:"style"`
	Languages           []string `mapstructure:"languages" yaml:"languages"`
	Pages               int      `mapstructure:"pages" yaml:"pages"`
	TextTimeoutSeconds  int      `mapstructure:"text_timeout_seconds" yaml:"text_timeout_seconds"`
	ImageTimeoutSeconds int      `mapstructure:"image_timeout_seconds" yaml:"image_timeout_seconds"`
	Attempts            int      `mapstructure:"attempts" yaml:"attempts"`
	RetryDelayMillis    int      `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
}

// PipelineCfg tunes image processing, layout and execution.
type PipelineCfg struct {
	BackgroundThreshold int     `mapstructure:"background_threshold" yaml:"background_threshold"`
	CropPadding         int     `mapstructure:"crop_padding" yaml:"crop_padding"`
	Border              bool    `mapstructure:"border" yaml:"border"`
	BorderWidth         int     `mapstructure:"border_width" yaml:"border_width"`
	BorderStyle         string  `mapstructure:"border_style" yaml:"border_style"` // "frame" or "outline"
	RotationMin         float64 `mapstructure:"rotation_min" yaml:"rotation_min"`
	RotationMax         float64 `mapstructure:"rotation_max" yaml:"rotation_max"`
	TrimSize            string  `mapstructure:"trim_size" yaml:"trim_size"` // "letter", "square", "landscape"
	DPI                 int     `mapstructure:"dpi" yaml:"dpi"`
	Workers             int     `mapstructure:"workers" yaml:"workers"`                     // Concurrent jobs
	ImageConcurrency    int     `mapstructure:"image_concurrency" yaml:"image_concurrency"` // Concurrent illustrations per job
	QueueSize           int     `mapstructure:"queue_size" yaml:"queue_size"`
}

// CharactersCfg selects the character store backend.
type CharactersCfg struct {
	Backend      string `mapstructure:"backend" yaml:"backend"`             // "file" or "sqlite"
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Defaults to {home}/storybooker.db
}

// ServerCfg holds HTTP listener settings.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"groq": {
				Type:    "groq",
				Model:   "llama-3.3-70b-versatile",
				APIKey:  "${GROQ_API_KEY}",
				Enabled: true,
			},
			"openai": {
				Type:       "openai",
				Model:      "gpt-4o-mini",
				ImageModel: "dall-e-3",
				APIKey:     "${OPENAI_API_KEY}",
				Enabled:    true,
			},
			"pollinations": {
				Type:    "pollinations",
				Model:   "flux",
				APIKey:  "${POLLINATIONS_API_KEY}",
				Enabled: true,
			},
			"mock": {
				Type:    "mock",
				Enabled: true,
			},
		},
		Defaults: DefaultsCfg{
			TextProviders:       []string{"groq", "openai", "mock"},
			ImageProviders:      []string{"pollinations", "openai", "mock"},
			Style:               "3D_RENDERED",
			Languages:           []string{"en"},
			Pages:               5,
			TextTimeoutSeconds:  120,
			ImageTimeoutSeconds: 180,
			Attempts:            2,
			RetryDelayMillis:    1000,
		},
		Pipeline: PipelineCfg{
			BackgroundThreshold: 240,
			CropPadding:         10,
			Border:              false,
			BorderWidth:         3,
			BorderStyle:         "outline",
			RotationMin:         -10,
			RotationMax:         10,
			TrimSize:            "letter",
			DPI:                 150,
			Workers:             2,
			ImageConcurrency:    3,
			QueueSize:           100,
		},
		Characters: CharactersCfg{
			Backend: "file",
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
