package characters

import (
	"fmt"
	"strings"

	"github.com/guillermopickman-spec/story-booker/internal/book"
)

// ImagePrompt is a fully resolved image request. It is derived for each
// generation call and never stored.
type ImagePrompt struct {
	Text         string     `json:"text"`
	Seed         *int64     `json:"seed,omitempty"`
	CharacterIDs []string   `json:"character_ids,omitempty"`
	Style        book.Style `json:"style"`
}

// BuildPrompt combines a base scene description with the physical
// description of every character in it and the art style. The seed of the
// first character with a locked seed is used for the whole image.
func BuildPrompt(base string, style book.Style, chars ...*Character) ImagePrompt {
	p := ImagePrompt{Style: style}
	parts := []string{strings.TrimSpace(base)}

	var species []string
	for _, c := range chars {
		if c == nil {
			continue
		}
		p.CharacterIDs = append(p.CharacterIDs, c.ID)
		if p.Seed == nil && c.Seed != nil {
			seed := *c.Seed
			p.Seed = &seed
		}
		parts = append(parts, fmt.Sprintf("%s must look exactly like this: %s", c.Name, c.BasePrompt()))
		if c.Species != "" {
			species = append(species, fmt.Sprintf("%s is a %s", c.Name, c.Species))
		}
	}
	if len(species) > 0 {
		parts = append(parts, "CRITICAL: keep every character's species: "+strings.Join(species, "; ")+". Do NOT change character species")
	}
	parts = append(parts, style.Description())

	p.Text = strings.Join(parts, ". ")
	return p
}

// ReferencePrompt is the prompt for a character's reference sheet.
func ReferencePrompt(c *Character, style book.Style) string {
	return c.BasePrompt() + ", front view, character concept art, detailed character design sheet, neutral pose, clean white background, professional studio lighting, " + style.Description()
}

// CoverPrompt builds the cover scene prompt from the first beat.
func CoverPrompt(b *book.StoryBook) string {
	scene := "exciting adventure scene, colorful and engaging"
	if len(b.Beats) > 0 && strings.TrimSpace(b.Beats[0].VisualDescription) != "" {
		scene = b.Beats[0].VisualDescription + ", hero scene, exciting and colorful"
	}
	return "Children's book cover illustration scene: " + scene + ", full page illustration, no text, no words, no letters, illustration only"
}

// ScenePrompt turns an art director prompt into a full-page illustration
// prompt for a beat, adding the beat's emotion when characters appear.
func ScenePrompt(designed string, beat book.Beat, style book.Style, chars []*Character) ImagePrompt {
	base := designed
	lower := strings.ToLower(base)
	if !strings.Contains(lower, "full-page") && !strings.Contains(lower, "full page") {
		base = "Full-page children's book illustration scene: " + base + ", complete scene, vibrant colors"
	}
	present := InBeat(beat, chars)
	if len(present) > 0 {
		base += ", " + DetectEmotion(beat.Text).Clause()
	}
	return BuildPrompt(base, style, present...)
}
