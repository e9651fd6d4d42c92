package characters

import (
	"strings"
	"testing"

	"github.com/guillermopickman-spec/story-booker/internal/book"
)

func TestBuildPrompt(t *testing.T) {
	seed := int64(1234)
	unlocked := &Character{ID: "chr_bo", Name: "Bo", Species: "bear", PhysicalDescription: "brown bear"}
	locked := &Character{ID: "chr_pip", Name: "Pip", Species: "fox", PhysicalDescription: "orange fox", Seed: &seed}

	p := BuildPrompt("A picnic in the park", book.StyleWatercolor, unlocked, locked)
	if p.Seed == nil || *p.Seed != seed {
		t.Fatalf("expected seed %d from the first locked character, got %v", seed, p.Seed)
	}
	if p.Seed == locked.Seed {
		t.Error("prompt must not alias the character's seed")
	}
	if got := strings.Join(p.CharacterIDs, ","); got != "chr_bo,chr_pip" {
		t.Errorf("CharacterIDs = %s", got)
	}
	for _, want := range []string{
		"A picnic in the park",
		"Pip must look exactly like this: Pip, a fox, orange fox",
		"Bo is a bear; Pip is a fox",
		book.StyleWatercolor.Description(),
	} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("prompt missing %q:\n%s", want, p.Text)
		}
	}

	bare := BuildPrompt("A quiet lake", book.StyleLineArt)
	if bare.Seed != nil || len(bare.CharacterIDs) != 0 {
		t.Errorf("prompt without characters should carry no seed: %+v", bare)
	}
}

func TestScenePrompt(t *testing.T) {
	chars := testCast()
	beat := book.Beat{Text: "Pip was happy.", VisualDescription: "fox dancing"}

	p := ScenePrompt("A fox dancing", beat, book.Style3DRendered, chars)
	if !strings.HasPrefix(p.Text, "Full-page children's book illustration scene: A fox dancing") {
		t.Errorf("scene prefix missing:\n%s", p.Text)
	}
	if !strings.Contains(p.Text, EmotionHappy.Detail()) {
		t.Errorf("emotion missing:\n%s", p.Text)
	}
	if len(p.CharacterIDs) != 1 || p.CharacterIDs[0] != "chr_pip" {
		t.Errorf("CharacterIDs = %v", p.CharacterIDs)
	}

	empty := ScenePrompt("Full page view of a lake", book.Beat{Text: "Rain fell, happy rain."}, book.Style3DRendered, chars)
	if strings.HasPrefix(empty.Text, "Full-page children's") {
		t.Error("existing full page wording should not be prefixed again")
	}
	if strings.Contains(empty.Text, "emotion clearly visible") {
		t.Error("emotion clause only applies when characters appear")
	}
}

func TestCoverPrompt(t *testing.T) {
	b := &book.StoryBook{Beats: []book.Beat{{VisualDescription: "a fox on a hill"}}}
	if got := CoverPrompt(b); !strings.Contains(got, "a fox on a hill") || !strings.Contains(got, "no text") {
		t.Errorf("CoverPrompt() = %q", got)
	}
	if got := CoverPrompt(&book.StoryBook{}); !strings.Contains(got, "adventure scene") {
		t.Errorf("CoverPrompt() without beats = %q", got)
	}
}
