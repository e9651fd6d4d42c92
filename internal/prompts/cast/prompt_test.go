package cast

import (
	"context"
	"strings"
	"testing"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

func TestBuildRequest(t *testing.T) {
	r := prompts.NewResolver(nil, nil)
	RegisterPrompts(r)

	b := &book.StoryBook{
		Title:    "El zorro",
		Language: "es",
		Beats:    []book.Beat{{Text: "Pip corre."}, {Text: "Luna vuela."}},
	}
	req, err := BuildRequest(context.Background(), r, Input{Theme: "bosque", Book: b})
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.Kind != providers.KindCharacters || req.Temperature != 0.5 {
		t.Errorf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.System, "written in Spanish") {
		t.Errorf("expected language note:\n%s", req.System)
	}
	if !strings.Contains(req.User, "Pip corre.\n\nLuna vuela.") {
		t.Errorf("story text missing:\n%s", req.User)
	}

	b.Language = "en"
	req, err = BuildRequest(context.Background(), r, Input{Book: b})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(req.System, "IMPORTANT") {
		t.Errorf("english story should not carry a language note")
	}

	if _, err := BuildRequest(context.Background(), r, Input{}); err == nil {
		t.Error("expected error without a book")
	}
}

func TestParse(t *testing.T) {
	result := &providers.TextResult{
		Provider: "test",
		Content: `{"characters": [
			{"name": " Pip ", "species": "fox", "physical_description": "small", "key_features": ["tail"],
			 "color_palette": {"primary_color": "orange", "hair_color": null}},
			{"name": "", "physical_description": "nobody"},
			{"name": "Luna", "species": null, "physical_description": "owl"}
		]}`,
	}
	got, err := Parse(result)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(got))
	}
	if got[0].Name != "Pip" {
		t.Errorf("name not trimmed: %q", got[0].Name)
	}
	if _, ok := got[0].ColorPalette["hair_color"]; ok {
		t.Error("null palette entry kept")
	}
	if got[1].Species != "" {
		t.Errorf("null species should decode empty, got %q", got[1].Species)
	}
}
