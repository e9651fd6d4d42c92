package providers

import (
	"context"
	"encoding/json"
	"time"
)

// Capability is a kind of generation a provider can perform.
type Capability string

const (
	CapText  Capability = "text"
	CapImage Capability = "image"
)

// TextKind identifies which prompt produced a text request.
// Providers that fabricate output (the mock) use it to shape their response.
type TextKind string

const (
	KindStory      TextKind = "story"
	KindCharacters TextKind = "characters"
	KindPrompt     TextKind = "prompt"
	KindLocalize   TextKind = "localize"
)

// Provider is a single text and/or image generation backend.
// A provider only needs to implement the capabilities it reports via Supports;
// the rest return ErrUnsupported.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "pollinations").
	Name() string

	// Supports reports whether the provider implements a capability.
	Supports(capability Capability) bool

	// GenerateText runs a chat completion.
	GenerateText(ctx context.Context, req *TextRequest) (*TextResult, error)

	// GenerateImage renders a single image.
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error)
}

// TextRequest is a request for generated text.
type TextRequest struct {
	Kind   TextKind
	System string
	User   string

	// Generation parameters
	Temperature float64
	MaxTokens   int

	// JSON requests a JSON object response. When Schema is set the
	// response is also validated against it.
	JSON   bool
	Schema json.RawMessage

	// Hints for providers that synthesise responses.
	Pages    int
	Language string
}

// TextResult is a completed text generation.
type TextResult struct {
	Content string `json:"content"`

	// ParsedJSON is populated by Chain when the request asked for JSON.
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"`

	Provider      string        `json:"provider"`
	ModelUsed     string        `json:"model_used"`
	Attempts      int           `json:"attempts"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// ImageRequest is a request for a single generated image.
type ImageRequest struct {
	Prompt string

	// Seed pins generation for providers that honour it. Nil means random.
	Seed *int64

	Width  int
	Height int
}

// ImageResult is a completed image generation.
type ImageResult struct {
	// Data is the encoded image (PNG or JPEG).
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`

	Seed          *int64        `json:"seed,omitempty"`
	Provider      string        `json:"provider"`
	ModelUsed     string        `json:"model_used"`
	Attempts      int           `json:"attempts"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
