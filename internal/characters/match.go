package characters

import (
	"strings"

	"github.com/guillermopickman-spec/story-booker/internal/book"
)

// MatchSubject returns the character a sticker subject refers to, by name,
// species or a meaningful part of the name. Articles are ignored.
func MatchSubject(subject string, chars []*Character) *Character {
	s := cleanSubject(subject)
	if s == "" {
		return nil
	}
	for _, c := range chars {
		name := IdentityKey(c.Name)
		if name != "" && (strings.Contains(s, name) || strings.Contains(name, s)) {
			return c
		}
		if species := IdentityKey(c.Species); species != "" {
			if strings.Contains(s, species) || strings.Contains(species, s) {
				return c
			}
		}
		for _, part := range strings.Fields(name) {
			if len(part) > 2 && containsWord(s, part) {
				return c
			}
		}
	}
	return nil
}

func cleanSubject(subject string) string {
	words := strings.Fields(IdentityKey(subject))
	kept := words[:0]
	for _, w := range words {
		switch w {
		case "the", "a", "an":
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// Mentioned reports whether the character's name, or failing that its
// species, appears as a whole word in text.
func (c *Character) Mentioned(text string) bool {
	lower := IdentityKey(text)
	if name := IdentityKey(c.Name); name != "" && containsWord(lower, name) {
		return true
	}
	if species := IdentityKey(c.Species); species != "" && containsWord(lower, species) {
		return true
	}
	return false
}

// InBeat returns the characters that appear in a beat's text, scene or subjects.
func InBeat(beat book.Beat, chars []*Character) []*Character {
	var out []*Character
	for _, c := range chars {
		if c.Mentioned(beat.Text) || c.Mentioned(beat.VisualDescription) {
			out = append(out, c)
			continue
		}
		for _, s := range beat.StickerSubjects {
			if MatchSubject(s, []*Character{c}) != nil {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// EnsureInBeats adds characters mentioned in a beat's text to its sticker
// subjects when they are missing. Characters whose identity is in always are
// added to the first beat even when the text never mentions them.
func EnsureInBeats(b *book.StoryBook, chars []*Character, always map[string]bool) {
	for i := range b.Beats {
		beat := &b.Beats[i]
		for _, c := range chars {
			include := c.Mentioned(beat.Text) || (i == 0 && always[c.Identity()])
			if !include || subjectsInclude(beat.StickerSubjects, c) {
				continue
			}
			beat.StickerSubjects = append(beat.StickerSubjects, c.Name)
		}
	}
}

func subjectsInclude(subjects []string, c *Character) bool {
	for _, s := range subjects {
		if MatchSubject(s, []*Character{c}) != nil {
			return true
		}
	}
	return false
}
