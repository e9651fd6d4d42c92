package artdirector

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

	beat := book.Beat{
		Index:             1,
		Text:              "Pip found a shiny key.",
		VisualDescription: "A fox holding a key",
		StickerSubjects:   []string{"Pip", "key"},
	}
	req, err := BuildRequest(context.Background(), r, Input{
		Beat:       beat,
		Style:      book.StyleWatercolor,
		Characters: []string{"Pip, a fox, orange fur"},
	})
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.Kind != providers.KindPrompt || req.Temperature != 0.7 {
		t.Errorf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.System, book.StyleWatercolor.Description()) {
		t.Errorf("style missing from system prompt:\n%s", req.System)
	}
	if !strings.Contains(req.User, "Sticker Subjects: Pip, key") {
		t.Errorf("subjects missing:\n%s", req.User)
	}
	if !strings.Contains(req.User, "- Pip, a fox, orange fur") {
		t.Errorf("character reference missing:\n%s", req.User)
	}
}

func TestParse(t *testing.T) {
	beat := book.Beat{StickerSubjects: []string{"Pip", "key"}}

	got, err := Parse(&providers.TextResult{Content: `{"prompt": " A fox with a key "}`}, beat)
	if err != nil || got != "A fox with a key" {
		t.Errorf("Parse() = %q, %v", got, err)
	}

	got, err = Parse(&providers.TextResult{Content: `{"prompt": ""}`}, beat)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Pip and key") {
		t.Errorf("expected fallback prompt, got %q", got)
	}

	if _, err := Parse(&providers.TextResult{Content: "not json"}, beat); err == nil {
		t.Error("expected decode error")
	}
}
