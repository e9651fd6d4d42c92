package providers

import (
	"os"
	"time"
)

// TestConfig holds provider API keys loaded from environment variables, so
// live tests can run when keys are present and skip otherwise.
type TestConfig struct {
	GroqAPIKey         string
	OpenAIAPIKey       string
	PollinationsAPIKey string
}

// LoadTestConfig loads provider API keys from environment variables.
func LoadTestConfig() TestConfig {
	return TestConfig{
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		PollinationsAPIKey: os.Getenv("POLLINATIONS_API_KEY"),
	}
}

// HasAnyText returns true if any text provider is configured.
func (c TestConfig) HasAnyText() bool {
	return c.GroqAPIKey != "" || c.OpenAIAPIKey != ""
}

// HasAnyImage returns true if any image provider is configured.
func (c TestConfig) HasAnyImage() bool {
	return c.PollinationsAPIKey != "" || c.OpenAIAPIKey != ""
}

// NewMockRegistry builds a registry whose text and image chains are the
// given providers, in order. Nil slices default to a single MockProvider.
// Retries are disabled and the retry delay is short, so failures surface fast.
func NewMockRegistry(text, image []Provider) *Registry {
	if text == nil {
		text = []Provider{NewMockProvider()}
	}
	if image == nil {
		image = []Provider{NewMockProvider()}
	}

	r := NewRegistry()
	var textOrder, imageOrder []string
	for i, p := range text {
		name := registryName("text", i, p)
		r.Register(name, p)
		textOrder = append(textOrder, name)
	}
	for i, p := range image {
		name := registryName("image", i, p)
		r.Register(name, p)
		imageOrder = append(imageOrder, name)
	}
	r.SetOrder(textOrder, imageOrder)
	r.SetChainSettings(ChainSettings{
		TextTimeout:  5 * time.Second,
		ImageTimeout: 5 * time.Second,
		Attempts:     1,
		RetryDelay:   time.Millisecond,
	})
	return r
}

func registryName(kind string, i int, p Provider) string {
	return kind + "-" + string(rune('a'+i)) + "-" + p.Name()
}
