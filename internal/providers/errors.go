package providers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupported is returned when a provider is asked for a capability it lacks.
var ErrUnsupported = errors.New("capability not supported")

// ErrNoProviders is returned by a chain with nothing to try.
var ErrNoProviders = errors.New("no providers configured")

// ProviderError records one provider's failure inside a chain.
type ProviderError struct {
	Provider   string
	Capability Capability
	Attempts   int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Provider, e.Capability, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every provider in a chain failed.
type ExhaustedError struct {
	Capability Capability
	Failures   []*ProviderError
}

func (e *ExhaustedError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Provider
	}
	return fmt.Sprintf("all %s providers failed [%s]: %v", e.Capability, strings.Join(names, ", "), e.join())
}

// Unwrap exposes every provider failure to errors.Is / errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

func (e *ExhaustedError) join() error {
	return errors.Join(e.Unwrap()...)
}

// RateLimitError is returned when a provider responds with HTTP 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// IsRateLimitError reports whether err wraps a *RateLimitError.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
