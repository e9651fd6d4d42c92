package providers

import (
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockProvider()

		r.Register("test", mock)

		p, err := r.Get("test")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if p != mock {
			t.Error("got different provider than registered")
		}
	})

	t.Run("get nonexistent", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Get("nonexistent"); err == nil {
			t.Error("expected error for nonexistent provider")
		}
	})

	t.Run("list sorted", func(t *testing.T) {
		r := NewRegistry()
		r.Register("b", NewMockProvider())
		r.Register("a", NewMockProvider())
		list := r.List()
		if len(list) != 2 || list[0] != "a" || list[1] != "b" {
			t.Errorf("List() = %v, want [a b]", list)
		}
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		r.Register("x", NewMockProvider())
		r.Unregister("x")
		if r.Has("x") {
			t.Error("provider should be gone after Unregister")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.Register("mock", NewMockProvider())
			}()
			go func() {
				defer wg.Done()
				_ = r.List()
				_ = r.ImageChain()
			}()
		}
		wg.Wait()
	})
}

func TestRegistry_Chains(t *testing.T) {
	r := NewRegistry()
	text := NewMockProvider()
	text.ProviderName = "text"
	text.TextOnly = true
	img := NewMockProvider()
	img.ProviderName = "img"
	img.ImageOnly = true

	r.Register("text", text)
	r.Register("img", img)
	r.SetOrder([]string{"img", "missing", "text"}, []string{"text", "img"})

	if names := r.TextChain().Names(); len(names) != 1 || names[0] != "text" {
		t.Errorf("TextChain() = %v, want [text]", names)
	}
	if names := r.ImageChain().Names(); len(names) != 1 || names[0] != "img" {
		t.Errorf("ImageChain() = %v, want [img]", names)
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := RegistryConfig{
		Providers: map[string]ProviderConfig{
			"openai":       {Type: "openai", APIKey: "sk-test", ImageModel: "dall-e-3", Enabled: true},
			"groq":         {Type: "groq", APIKey: "", Enabled: true},
			"pollinations": {Type: "pollinations", APIKey: "pk", Enabled: false},
			"mock":         {Type: "mock", Enabled: true},
			"weird":        {Type: "nope", APIKey: "k", Enabled: true},
		},
		TextOrder:  []string{"groq", "openai", "mock"},
		ImageOrder: []string{"pollinations", "openai", "mock"},
	}

	r := NewRegistryFromConfig(cfg)

	if !r.Has("openai") || !r.Has("mock") {
		t.Errorf("expected openai and mock registered, got %v", r.List())
	}
	if r.Has("groq") {
		t.Error("groq without API key should not be registered")
	}
	if r.Has("pollinations") {
		t.Error("disabled provider should not be registered")
	}
	if r.Has("weird") {
		t.Error("unknown provider type should not be registered")
	}

	if names := r.ImageChain().Names(); len(names) != 2 || names[0] != "openai" || names[1] != "mock" {
		t.Errorf("ImageChain() = %v, want [openai mock]", names)
	}
}

func TestRegistry_Reload(t *testing.T) {
	cfg := RegistryConfig{
		Providers: map[string]ProviderConfig{
			"mock":   {Type: "mock", Enabled: true},
			"openai": {Type: "openai", APIKey: "k1", Enabled: true},
		},
	}
	r := NewRegistryFromConfig(cfg)
	before, _ := r.Get("mock")

	t.Run("unchanged provider is kept", func(t *testing.T) {
		r.Reload(cfg)
		after, _ := r.Get("mock")
		if before != after {
			t.Error("unchanged provider should not be recreated")
		}
	})

	t.Run("changed provider is recreated", func(t *testing.T) {
		oldOpenAI, _ := r.Get("openai")
		cfg.Providers["openai"] = ProviderConfig{Type: "openai", APIKey: "k2", Enabled: true}
		r.Reload(cfg)
		newOpenAI, _ := r.Get("openai")
		if oldOpenAI == newOpenAI {
			t.Error("changed provider should be recreated")
		}
	})

	t.Run("removed provider is unregistered", func(t *testing.T) {
		delete(cfg.Providers, "openai")
		r.Reload(cfg)
		if r.Has("openai") {
			t.Error("removed provider should be unregistered")
		}
	})

	t.Run("manually registered provider survives reload", func(t *testing.T) {
		r.Register("manual", NewMockProvider())
		r.Reload(cfg)
		if !r.Has("manual") {
			t.Error("manual provider should survive reload")
		}
	})
}
