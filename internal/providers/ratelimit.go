package providers

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a provider with a token bucket shared by all its callers.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited limits p to rps requests per second. A non-positive rps
// returns p unwrapped.
func NewRateLimited(p Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GenerateText waits for a token before delegating.
func (r *RateLimited) GenerateText(ctx context.Context, req *TextRequest) (*TextResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.GenerateText(ctx, req)
}

// GenerateImage waits for a token before delegating.
func (r *RateLimited) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.GenerateImage(ctx, req)
}

// Unwrap returns the underlying provider.
func (r *RateLimited) Unwrap() Provider {
	return r.Provider
}
