package localize

import (
	"context"
	"strings"
	"testing"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

func baseBook() *book.StoryBook {
	return &book.StoryBook{
		Title:    "The Fox",
		Language: "en",
		Beats: []book.Beat{
			{Index: 1, Text: "Pip runs.", VisualDescription: "fox running", StickerSubjects: []string{"Pip"}},
			{Index: 2, Text: "Luna flies.", VisualDescription: "owl flying", StickerSubjects: []string{"Luna"}},
		},
	}
}

func TestRoundTripWithMock(t *testing.T) {
	r := prompts.NewResolver(nil, nil)
	RegisterPrompts(r)
	base := baseBook()

	req, err := BuildRequest(context.Background(), r, base, "es")
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.Kind != providers.KindLocalize || req.Language != "es" {
		t.Errorf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.System, "Spanish") {
		t.Errorf("language missing:\n%s", req.System)
	}

	result, err := providers.NewMockProvider().GenerateText(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Apply(result, base, "es")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.Title != "[es] The Fox" {
		t.Errorf("title = %q", out.Title)
	}
	if out.Language != "es" || out.Beats[1].VisualDescription != "owl flying" {
		t.Errorf("visual data not preserved: %+v", out)
	}
	if base.Title != "The Fox" {
		t.Error("base book was mutated")
	}
}

func TestApplyBeatMismatch(t *testing.T) {
	result := &providers.TextResult{Content: `{"title": "El zorro", "beats": [{"text": "uno"}]}`}
	if _, err := Apply(result, baseBook(), "es"); err == nil {
		t.Error("expected beat count mismatch")
	}
}
