package providers

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimited(t *testing.T) {
	t.Run("zero rate returns provider unwrapped", func(t *testing.T) {
		m := NewMockProvider()
		if NewRateLimited(m, 0, 1) != Provider(m) {
			t.Error("expected unwrapped provider")
		}
	})

	t.Run("limits request rate", func(t *testing.T) {
		m := NewMockProvider()
		m.Latency = 0
		p := NewRateLimited(m, 20, 1)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if _, err := p.GenerateImage(context.Background(), &ImageRequest{Prompt: "x", Width: 2, Height: 2}); err != nil {
				t.Fatalf("GenerateImage() error = %v", err)
			}
		}
		// 3 requests at 20 rps with burst 1 need at least ~100ms.
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("rate limit not applied, took %s", elapsed)
		}
		if p.Name() != MockProviderName {
			t.Errorf("expected delegated name, got %s", p.Name())
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		p := NewRateLimited(NewMockProvider(), 0.001, 1)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, _ = p.GenerateText(ctx, &TextRequest{Kind: KindPrompt})
		if _, err := p.GenerateText(ctx, &TextRequest{Kind: KindPrompt}); err == nil {
			t.Error("expected error when waiting past the deadline")
		}
	})
}
