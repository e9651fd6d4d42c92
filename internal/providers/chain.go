package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// ChainConfig configures a provider chain.
type ChainConfig struct {
	// Providers are tried in order; the first success wins.
	Providers []Provider

	// Timeout bounds each provider's turn, retries included.
	Timeout time.Duration

	// Attempts per provider before moving to the next one.
	Attempts uint

	// RetryDelay is the base delay for exponential backoff between attempts.
	RetryDelay time.Duration

	Logger *slog.Logger
}

// Chain is an ordered fallback list of providers for one capability.
type Chain struct {
	providers  []Provider
	timeout    time.Duration
	attempts   uint
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewChain creates a chain with defaults filled in.
func NewChain(cfg ChainConfig) *Chain {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	providers := make([]Provider, len(cfg.Providers))
	copy(providers, cfg.Providers)
	return &Chain{
		providers:  providers,
		timeout:    cfg.Timeout,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// Names returns the provider names in fallback order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// GenerateText walks the chain until a provider returns usable text.
// JSON requests are parsed (and schema-validated) per attempt, so malformed
// output is retried and then falls through to the next provider.
func (c *Chain) GenerateText(ctx context.Context, req *TextRequest) (*TextResult, error) {
	return runChain(ctx, c, CapText, func(ctx context.Context, p Provider) (*TextResult, error) {
		result, err := p.GenerateText(ctx, req)
		if err != nil {
			return nil, err
		}
		if req.JSON || len(req.Schema) > 0 {
			parsed, err := extractJSON(result.Content)
			if err != nil {
				return nil, err
			}
			if err := checkSchema(req.Schema, parsed); err != nil {
				return nil, err
			}
			result.ParsedJSON = parsed
		}
		return result, nil
	}, func(r *TextResult, attempts int) { r.Attempts = attempts })
}

// GenerateImage walks the chain until a provider returns an image.
func (c *Chain) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	return runChain(ctx, c, CapImage, func(ctx context.Context, p Provider) (*ImageResult, error) {
		result, err := p.GenerateImage(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(result.Data) == 0 {
			return nil, fmt.Errorf("empty image payload")
		}
		return result, nil
	}, func(r *ImageResult, attempts int) { r.Attempts = attempts })
}

func runChain[T any](
	ctx context.Context,
	c *Chain,
	capability Capability,
	call func(context.Context, Provider) (T, error),
	setAttempts func(T, int),
) (T, error) {
	var zero T
	if len(c.providers) == 0 {
		return zero, ErrNoProviders
	}

	exhausted := &ExhaustedError{Capability: capability}
	for _, p := range c.providers {
		if !p.Supports(capability) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		start := time.Now()
		result, attempts, err := tryProvider(ctx, c, p, call)
		if err == nil {
			setAttempts(result, attempts)
			c.logger.Debug("provider succeeded",
				"provider", p.Name(), "capability", capability,
				"attempts", attempts, "elapsed", time.Since(start))
			return result, nil
		}

		// Caller cancellation ends the chain; a provider timeout does not.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		c.logger.Warn("provider failed, trying next",
			"provider", p.Name(), "capability", capability,
			"attempts", attempts, "error", err)
		exhausted.Failures = append(exhausted.Failures, &ProviderError{
			Provider:   p.Name(),
			Capability: capability,
			Attempts:   attempts,
			Err:        err,
		})
	}

	if len(exhausted.Failures) == 0 {
		return zero, fmt.Errorf("%w: no provider supports %s", ErrNoProviders, capability)
	}
	return zero, exhausted
}

// tryProvider runs one provider under its own timeout, retrying inside that budget.
func tryProvider[T any](ctx context.Context, c *Chain, p Provider, call func(context.Context, Provider) (T, error)) (T, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attempts := 0
	result, err := retry.DoWithData(
		func() (T, error) {
			attempts++
			return call(ctx, p)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(rateLimitAwareDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrUnsupported)
		}),
	)
	return result, attempts, err
}

// rateLimitAwareDelay honours Retry-After on 429s and backs off exponentially otherwise.
func rateLimitAwareDelay(n uint, err error, config *retry.Config) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	return retry.BackOffDelay(n, err, config)
}
