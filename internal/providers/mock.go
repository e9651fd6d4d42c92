package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"time"
)

const MockProviderName = "mock"

// MockProvider fabricates deterministic text and images without network access.
// Text responses are shaped by TextRequest.Kind so a full pipeline can run on it.
type MockProvider struct {
	// Configurable behavior
	ProviderName string
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	TextOnly     bool
	ImageOnly    bool

	// ResponseText overrides the synthesised text response when set.
	ResponseText string

	// State
	requestCount atomic.Int64
	lastSeed     atomic.Pointer[int64]
}

// NewMockProvider creates a new mock provider with sensible defaults.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ProviderName: MockProviderName,
		Latency:      time.Millisecond,
	}
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return MockProviderName
	}
	return m.ProviderName
}

// Supports reports the enabled capabilities.
func (m *MockProvider) Supports(capability Capability) bool {
	switch capability {
	case CapText:
		return !m.ImageOnly
	case CapImage:
		return !m.TextOnly
	}
	return false
}

// GenerateText returns a canned response for the request kind.
func (m *MockProvider) GenerateText(ctx context.Context, req *TextRequest) (*TextResult, error) {
	if !m.Supports(CapText) {
		return nil, ErrUnsupported
	}
	start := time.Now()
	if err := m.begin(ctx); err != nil {
		return nil, err
	}

	content := m.ResponseText
	if content == "" {
		var err error
		content, err = mockText(req)
		if err != nil {
			return nil, err
		}
	}

	return &TextResult{
		Content:       content,
		Provider:      m.Name(),
		ModelUsed:     "mock",
		Attempts:      1,
		ExecutionTime: time.Since(start),
	}, nil
}

// GenerateImage renders a flat sticker-like disc on a white background.
// Identical prompt and seed always yield identical bytes.
func (m *MockProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	if !m.Supports(CapImage) {
		return nil, ErrUnsupported
	}
	start := time.Now()
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	m.lastSeed.Store(req.Seed)

	width, height := req.Width, req.Height
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 512
	}

	data, err := mockImage(req.Prompt, req.Seed, width, height)
	if err != nil {
		return nil, err
	}

	return &ImageResult{
		Data:          data,
		ContentType:   "image/png",
		Seed:          req.Seed,
		Provider:      m.Name(),
		ModelUsed:     "mock",
		Attempts:      1,
		ExecutionTime: time.Since(start),
	}, nil
}

func (m *MockProvider) begin(ctx context.Context) error {
	count := m.requestCount.Add(1)

	if m.ShouldFail {
		return fmt.Errorf("mock provider configured to fail")
	}
	if m.FailAfter > 0 && int(count) > m.FailAfter {
		return fmt.Errorf("mock provider failed after %d requests", m.FailAfter)
	}

	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestCount returns the number of requests made.
func (m *MockProvider) RequestCount() int64 {
	return m.requestCount.Load()
}

// LastSeed returns the seed of the most recent image request.
func (m *MockProvider) LastSeed() *int64 {
	return m.lastSeed.Load()
}

// Reset resets the request counter.
func (m *MockProvider) Reset() {
	m.requestCount.Store(0)
}

func mockText(req *TextRequest) (string, error) {
	var payload any
	switch req.Kind {
	case KindStory:
		payload = mockStory(req.Pages)
	case KindCharacters:
		payload = map[string]any{"characters": mockCharacters}
	case KindPrompt:
		payload = map[string]any{
			"prompt": fmt.Sprintf("Cheerful sticker illustration, scene %08x, bright colors, clean white background", hashString(req.User)),
		}
	case KindLocalize:
		return mockLocalize(req)
	default:
		return "mock response", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var mockCharacters = []map[string]any{
	{
		"name":                 "Pip",
		"species":              "fox",
		"physical_description": "a small orange fox with a fluffy white-tipped tail",
		"key_features":         []string{"white-tipped tail", "green scarf"},
		"color_palette":        map[string]string{"primary_color": "orange", "accent_color": "green"},
	},
	{
		"name":                 "Luna",
		"species":              "owl",
		"physical_description": "a round grey owl with big golden eyes",
		"key_features":         []string{"golden eyes", "tiny spectacles"},
		"color_palette":        map[string]string{"primary_color": "grey", "eye_color": "gold"},
	},
}

func mockStory(pages int) map[string]any {
	if pages <= 0 {
		pages = 1
	}
	beats := make([]map[string]any, pages)
	for i := range beats {
		n := i + 1
		subjects := []string{"Pip", "a tall oak tree"}
		if n%2 == 0 {
			subjects = []string{"Pip", "Luna"}
		}
		beats[i] = map[string]any{
			"text": fmt.Sprintf("Pip the fox was happy to start part %d of the journey through the whispering woods.\n\n"+
				"Luna the owl hooted from a branch and pointed the way to the next clearing.", n),
			"visual_description": fmt.Sprintf("Pip the fox walking along a forest path with Luna the owl overhead, scene %d", n),
			"sticker_subjects":   subjects,
		}
	}
	return map[string]any{"title": "Pip and the Whispering Woods", "beats": beats}
}

// mockLocalize echoes the story embedded in the prompt, tagging the title with the language.
func mockLocalize(req *TextRequest) (string, error) {
	raw, err := extractJSON(req.User)
	if err != nil {
		return "", fmt.Errorf("mock localize: no story in prompt: %w", err)
	}
	var story map[string]any
	if err := json.Unmarshal(raw, &story); err != nil {
		return "", fmt.Errorf("mock localize: %w", err)
	}
	if title, ok := story["title"].(string); ok && req.Language != "" {
		story["title"] = fmt.Sprintf("[%s] %s", req.Language, title)
	}
	data, err := json.Marshal(story)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func mockImage(prompt string, seed *int64, width, height int) ([]byte, error) {
	h := hashString(prompt)
	if seed != nil {
		h ^= uint32(*seed)
	}
	fill := color.NRGBA{R: uint8(h), G: uint8(h >> 8), B: uint8(h >> 16), A: 255}
	// Keep the subject darker than the background threshold.
	if lum := (299*int(fill.R) + 587*int(fill.G) + 114*int(fill.B)) / 1000; lum > 200 {
		fill.R, fill.G, fill.B = fill.R/2, fill.G/2, fill.B/2
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	cx, cy := width/2, height/2
	r := min(width, height) / 3
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, fill)
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("mock image encode: %w", err)
	}
	return buf.Bytes(), nil
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(s)))
	return h.Sum32()
}

// Verify interface
var _ Provider = (*MockProvider)(nil)
