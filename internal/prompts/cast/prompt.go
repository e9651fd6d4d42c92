// Package cast holds the prompt that extracts recurring characters from a story.
package cast

import (
	"context"
	_ "embed"
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
	SystemKey = "cast.system"
	UserKey   = "cast.user"
)

// RegisterPrompts registers the extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Character extraction system prompt - lists main characters with detailed visual descriptions",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Character extraction user prompt - carries the story text",
	})
}

// Input contains the story to analyse.
type Input struct {
	Theme string
	Book  *book.StoryBook
}

// BuildRequest renders the extraction prompts into a text request.
func BuildRequest(ctx context.Context, r *prompts.Resolver, in Input) (*providers.TextRequest, error) {
	if in.Book == nil {
		return nil, fmt.Errorf("no story to analyse")
	}
	lang := in.Book.Language
	if lang == "" {
		lang = book.DefaultLanguage
	}
	data := map[string]any{
		"Theme":        in.Theme,
		"Title":        in.Book.Title,
		"Story":        in.Book.Text(),
		"Language":     lang,
		"LanguageName": book.LanguageName(lang),
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
		Kind:        providers.KindCharacters,
		System:      system,
		User:        user,
		Temperature: 0.5,
		MaxTokens:   4096,
		JSON:        true,
		Schema:      Schema,
		Language:    lang,
	}, nil
}

// Extracted is one character as described by the model.
type Extracted struct {
	Name                string            `json:"name"`
	Species             string            `json:"species"`
	PhysicalDescription string            `json:"physical_description"`
	KeyFeatures         []string          `json:"key_features"`
	ColorPalette        map[string]string `json:"color_palette"`
}

// Result is the parsed extraction output.
type Result struct {
	Characters []Extracted `json:"characters"`
}

// Parse decodes an extraction result, dropping unnamed entries and null palette values.
func Parse(result *providers.TextResult) ([]Extracted, error) {
	var res Result
	if err := providers.DecodeJSON(result, &res); err != nil {
		return nil, err
	}
	out := make([]Extracted, 0, len(res.Characters))
	for _, c := range res.Characters {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		for k, v := range c.ColorPalette {
			if strings.TrimSpace(v) == "" {
				delete(c.ColorPalette, k)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
