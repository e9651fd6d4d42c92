package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName              = "openai"
	GroqName                = "groq"
	GroqBaseURL             = "https://api.groq.com/openai/v1"
	openAIDefaultTextModel  = "gpt-4o-mini"
	openAIDefaultImageModel = openai.ImageModelDallE3
	groqDefaultTextModel    = "llama-3.3-70b-versatile"
)

// OpenAIConfig holds configuration for an OpenAI-compatible provider.
type OpenAIConfig struct {
	Name       string // Registry name (default "openai")
	APIKey     string
	BaseURL    string // Optional; Groq and other compatible APIs
	TextModel  string
	ImageModel string // Empty disables image generation for compatible APIs
	MaxRetries int    // Retry attempts for SDK transport
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
}

// OpenAIProvider implements Provider using the official OpenAI SDK.
type OpenAIProvider struct {
	name       string
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
	client     openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if cfg.TextModel == "" {
		cfg.TextModel = openAIDefaultTextModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		httpClient: httpClient,
		client:     openai.NewClient(opts...),
	}
}

// NewGroqProvider creates a text-only provider against Groq's OpenAI-compatible API.
func NewGroqProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = groqDefaultTextModel
	}
	return NewOpenAIProvider(OpenAIConfig{
		Name:      GroqName,
		APIKey:    apiKey,
		BaseURL:   GroqBaseURL,
		TextModel: model,
		Timeout:   120 * time.Second,
	})
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Supports reports text always, images only when an image model is configured.
func (p *OpenAIProvider) Supports(capability Capability) bool {
	switch capability {
	case CapText:
		return p.textModel != ""
	case CapImage:
		return p.imageModel != ""
	}
	return false
}

// GenerateText runs a chat completion.
func (p *OpenAIProvider) GenerateText(ctx context.Context, req *TextRequest) (*TextResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	start := time.Now()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if s := strings.TrimSpace(req.System); s != "" {
		messages = append(messages, openai.SystemMessage(s))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.textModel),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON || len(req.Schema) > 0 {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%s returned empty content", p.name)
	}

	return &TextResult{
		Content:       content,
		Provider:      p.name,
		ModelUsed:     resp.Model,
		Attempts:      1,
		ExecutionTime: time.Since(start),
	}, nil
}

// GenerateImage renders one image. OpenAI image models do not take a seed,
// so the request seed is passed through untouched on the result.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	if !p.Supports(CapImage) {
		return nil, ErrUnsupported
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	start := time.Now()

	model := openai.ImageModel(p.imageModel)
	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  model,
		N:      openai.Int(1),
		Size:   openAIImageSize(model, req.Width, req.Height),
	}
	if isDallE(model) {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := p.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, mapOpenAIError(p.name, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s returned no images", p.name)
	}

	data, err := p.imageBytes(ctx, resp.Data[0])
	if err != nil {
		return nil, err
	}

	return &ImageResult{
		Data:          data,
		ContentType:   http.DetectContentType(data),
		Seed:          req.Seed,
		Provider:      p.name,
		ModelUsed:     p.imageModel,
		Attempts:      1,
		ExecutionTime: time.Since(start),
	}, nil
}

func (p *OpenAIProvider) imageBytes(ctx context.Context, img openai.Image) ([]byte, error) {
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s image: %w", p.name, err)
		}
		return data, nil
	}
	if img.URL == "" {
		return nil, fmt.Errorf("%s image has neither data nor url", p.name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s image: %w", p.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s image: status %d", p.name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// TextModel returns the configured chat model.
func (p *OpenAIProvider) TextModel() string {
	return p.textModel
}

// ImageModel returns the configured image model.
func (p *OpenAIProvider) ImageModel() string {
	return p.imageModel
}

func isDallE(model openai.ImageModel) bool {
	return strings.HasPrefix(string(model), "dall-e")
}

// openAIImageSize picks the closest supported size for the requested aspect ratio.
func openAIImageSize(model openai.ImageModel, width, height int) openai.ImageGenerateParamsSize {
	switch {
	case width <= 0 || height <= 0 || width == height:
		return openai.ImageGenerateParamsSize1024x1024
	case width > height:
		if isDallE(model) {
			return openai.ImageGenerateParamsSize1792x1024
		}
		return openai.ImageGenerateParamsSize1536x1024
	default:
		if isDallE(model) {
			return openai.ImageGenerateParamsSize1024x1792
		}
		return openai.ImageGenerateParamsSize1024x1536
	}
}

func mapOpenAIError(name string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("%s rate limited: %s", name, apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("%s error (status %d): %s", name, apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%s error (status %d)", name, apiErr.StatusCode)
	}
	return err
}

var _ Provider = (*OpenAIProvider)(nil)
