// Package book holds the story model shared by the prompt, character, layout
// and pipeline packages.
package book

import (
	"fmt"
	"strings"
)

// Beat is one page of story: text, a scene description and the subjects
// that should appear as stickers.
type Beat struct {
	Index             int      `json:"index"`
	Text              string   `json:"text"`
	VisualDescription string   `json:"visual_description"`
	StickerSubjects   []string `json:"sticker_subjects"`
}

// StoryBook is a titled, ordered sequence of beats in one language.
type StoryBook struct {
	Title    string `json:"title"`
	Language string `json:"language,omitempty"`
	Beats    []Beat `json:"beats"`
}

// Page limits for a single book.
const (
	MinPages     = 1
	MaxPages     = 10
	DefaultPages = 5
)

// Normalize assigns 1-based indexes and trims whitespace from subjects.
func (b *StoryBook) Normalize() {
	for i := range b.Beats {
		b.Beats[i].Index = i + 1
		subjects := b.Beats[i].StickerSubjects[:0]
		for _, s := range b.Beats[i].StickerSubjects {
			if s = strings.TrimSpace(s); s != "" {
				subjects = append(subjects, s)
			}
		}
		b.Beats[i].StickerSubjects = subjects
	}
}

// Validate checks that the book has a title and exactly pages beats with text.
func (b *StoryBook) Validate(pages int) error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("story has no title")
	}
	if len(b.Beats) != pages {
		return fmt.Errorf("expected exactly %d story beats, got %d", pages, len(b.Beats))
	}
	for i, beat := range b.Beats {
		if strings.TrimSpace(beat.Text) == "" {
			return fmt.Errorf("beat %d has no text", i+1)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (b *StoryBook) Clone() *StoryBook {
	if b == nil {
		return nil
	}
	out := &StoryBook{Title: b.Title, Language: b.Language, Beats: make([]Beat, len(b.Beats))}
	for i, beat := range b.Beats {
		beat.StickerSubjects = append([]string(nil), beat.StickerSubjects...)
		out.Beats[i] = beat
	}
	return out
}

// Text returns all beat texts joined by blank lines.
func (b *StoryBook) Text() string {
	parts := make([]string, len(b.Beats))
	for i, beat := range b.Beats {
		parts[i] = beat.Text
	}
	return strings.Join(parts, "\n\n")
}
