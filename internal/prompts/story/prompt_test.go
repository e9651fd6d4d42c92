package story

import (
	"context"
	"strings"
	"testing"

	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

func newResolver() *prompts.Resolver {
	r := prompts.NewResolver(nil, nil)
	RegisterPrompts(r)
	return r
}

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest(context.Background(), newResolver(), Input{
		Theme:      "a brave snail",
		Pages:      3,
		Language:   "es",
		Characters: []string{"Shelly"},
	})
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.Kind != providers.KindStory || !req.JSON || req.Temperature != 0.8 {
		t.Errorf("unexpected request settings: %+v", req)
	}
	if !strings.Contains(req.System, "exactly 3 story beats") {
		t.Errorf("system prompt missing page count:\n%s", req.System)
	}
	if !strings.Contains(req.System, "- Shelly") {
		t.Errorf("system prompt missing character:\n%s", req.System)
	}
	if !strings.Contains(req.System, "Spanish") {
		t.Errorf("system prompt missing language:\n%s", req.System)
	}
	if !strings.Contains(req.User, "a brave snail") {
		t.Errorf("user prompt missing theme:\n%s", req.User)
	}
}

func TestBuildRequestDefaults(t *testing.T) {
	req, err := BuildRequest(context.Background(), newResolver(), Input{})
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if !strings.Contains(req.User, DefaultTheme) {
		t.Errorf("expected default theme, got:\n%s", req.User)
	}
	if req.Pages != 5 || req.Language != "en" {
		t.Errorf("expected defaults pages=5 lang=en, got %d %s", req.Pages, req.Language)
	}
}

func TestParseWithMockProvider(t *testing.T) {
	mock := providers.NewMockProvider()
	req, err := BuildRequest(context.Background(), newResolver(), Input{Theme: "woods", Pages: 4})
	if err != nil {
		t.Fatal(err)
	}
	result, err := mock.GenerateText(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	b, err := Parse(result, 4, "en")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(b.Beats) != 4 || b.Beats[3].Index != 4 {
		t.Errorf("unexpected beats: %+v", b.Beats)
	}
	if b.Language != "en" {
		t.Errorf("language = %q", b.Language)
	}

	if _, err := Parse(result, 5, "en"); err == nil {
		t.Error("expected beat count mismatch error")
	}
}
