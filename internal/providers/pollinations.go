package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	PollinationsName           = "pollinations"
	pollinationsDefaultBaseURL = "https://enter.pollinations.ai/api/generate/image"
	pollinationsDefaultModel   = "flux"
)

// PollinationsConfig holds configuration for the Pollinations image client.
type PollinationsConfig struct {
	APIKey     string
	Model      string // "flux" (default)
	BaseURL    string // Optional (tests)
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
}

// PollinationsProvider generates images through the authenticated Pollinations API.
// It honours seeds, which makes it the preferred backend for character consistency.
type PollinationsProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewPollinationsProvider creates a new Pollinations provider.
func NewPollinationsProvider(cfg PollinationsConfig) *PollinationsProvider {
	if cfg.Model == "" {
		cfg.Model = pollinationsDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = pollinationsDefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &PollinationsProvider{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the provider identifier.
func (p *PollinationsProvider) Name() string {
	return PollinationsName
}

// Supports reports image generation only.
func (p *PollinationsProvider) Supports(capability Capability) bool {
	return capability == CapImage
}

// GenerateText is not offered by Pollinations.
func (p *PollinationsProvider) GenerateText(context.Context, *TextRequest) (*TextResult, error) {
	return nil, ErrUnsupported
}

// GenerateImage renders one image.
func (p *PollinationsProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("pollinations API key is not configured")
	}
	start := time.Now()

	width, height := req.Width, req.Height
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}

	q := url.Values{}
	q.Set("model", p.model)
	q.Set("width", strconv.Itoa(width))
	q.Set("height", strconv.Itoa(height))
	q.Set("nologo", "true")
	if req.Seed != nil {
		q.Set("seed", strconv.FormatInt(*req.Seed, 10))
	}
	endpoint := fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(req.Prompt), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build pollinations request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pollinations request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Message:    "pollinations rate limited",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pollinations error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "image") {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("unexpected content type from pollinations: %q: %s", contentType, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading pollinations response: %w", err)
	}

	return &ImageResult{
		Data:          data,
		ContentType:   contentType,
		Seed:          req.Seed,
		Provider:      PollinationsName,
		ModelUsed:     p.model,
		Attempts:      1,
		ExecutionTime: time.Since(start),
	}, nil
}

var _ Provider = (*PollinationsProvider)(nil)
