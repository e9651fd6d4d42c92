// Package localize holds the prompt that translates a finished story while
// keeping its beat structure, so every language shares one set of illustrations.
package localize

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPrompt string

// Prompt keys.
const (
	SystemKey = "localize.system"
	UserKey   = "localize.user"
)

// RegisterPrompts registers the localization prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Localization system prompt - translates story text beat by beat",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Localization user prompt - carries the base story as JSON",
	})
}

type textBeat struct {
	Text string `json:"text"`
}

type textBook struct {
	Title string     `json:"title"`
	Beats []textBeat `json:"beats"`
}

// BuildRequest renders the translation prompts for base into language.
func BuildRequest(ctx context.Context, r *prompts.Resolver, base *book.StoryBook, language string) (*providers.TextRequest, error) {
	if base == nil {
		return nil, fmt.Errorf("no story to translate")
	}
	tb := textBook{Title: base.Title, Beats: make([]textBeat, len(base.Beats))}
	for i, b := range base.Beats {
		tb.Beats[i] = textBeat{Text: b.Text}
	}
	story, err := json.MarshalIndent(tb, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode story: %w", err)
	}

	data := map[string]any{
		"Language":     language,
		"LanguageName": book.LanguageName(language),
		"Story":        string(story),
	}
	system, err := r.Render(ctx, SystemKey, data)
	if err != nil {
		return nil, err
	}
	user, err := r.Render(ctx, UserKey, data)
	if err != nil {
		return nil, err
	}

	return &providers.TextRequest{
		Kind:        providers.KindLocalize,
		System:      system,
		User:        user,
		Temperature: 0.3,
		MaxTokens:   4096,
		JSON:        true,
		Schema:      Schema,
		Pages:       len(base.Beats),
		Language:    language,
	}, nil
}

// Apply decodes a translation and returns a copy of base carrying the
// translated title and text. Visual descriptions and subjects are kept.
func Apply(result *providers.TextResult, base *book.StoryBook, language string) (*book.StoryBook, error) {
	var tb textBook
	if err := providers.DecodeJSON(result, &tb); err != nil {
		return nil, err
	}
	if len(tb.Beats) != len(base.Beats) {
		return nil, fmt.Errorf("translation to %s has %d beats, expected %d", language, len(tb.Beats), len(base.Beats))
	}

	out := base.Clone()
	out.Language = language
	if title := strings.TrimSpace(tb.Title); title != "" {
		out.Title = title
	}
	for i, b := range tb.Beats {
		if text := strings.TrimSpace(b.Text); text != "" {
			out.Beats[i].Text = text
		}
	}
	return out, nil
}
