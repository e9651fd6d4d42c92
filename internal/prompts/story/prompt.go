// Package story holds the author prompt that turns a theme into story beats.
package story

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
	SystemKey = "story.system"
	UserKey   = "story.user"
)

// DefaultTheme is used when a request has no theme.
const DefaultTheme = "adventure"

// RegisterPrompts registers the story prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Author system prompt - writes a children's story as a fixed number of illustrated beats",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Author user prompt - carries the theme and page count",
	})
}

// Input contains the data needed to write a story.
type Input struct {
	Theme    string
	Pages    int
	Language string

	// Characters are names the story must feature (registered characters).
	Characters []string
}

type templateData struct {
	Theme        string
	Pages        int
	Language     string
	LanguageName string
	Characters   []string
}

// BuildRequest renders the story prompts into a text request.
func BuildRequest(ctx context.Context, r *prompts.Resolver, in Input) (*providers.TextRequest, error) {
	if in.Pages <= 0 {
		in.Pages = book.DefaultPages
	}
	if strings.TrimSpace(in.Theme) == "" {
		in.Theme = DefaultTheme
	}
	if in.Language == "" {
		in.Language = book.DefaultLanguage
	}
	data := templateData{
		Theme:        in.Theme,
		Pages:        in.Pages,
		Language:     in.Language,
		LanguageName: book.LanguageName(in.Language),
		Characters:   in.Characters,
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
		Kind:        providers.KindStory,
		System:      system,
		User:        user,
		Temperature: 0.8,
		MaxTokens:   4096,
		JSON:        true,
		Schema:      Schema,
		Pages:       in.Pages,
		Language:    in.Language,
	}, nil
}

// Parse decodes a story result and checks the beat count.
func Parse(result *providers.TextResult, pages int, language string) (*book.StoryBook, error) {
	var b book.StoryBook
	if err := providers.DecodeJSON(result, &b); err != nil {
		return nil, err
	}
	b.Language = language
	b.Normalize()
	if err := b.Validate(pages); err != nil {
		return nil, fmt.Errorf("invalid story from %s: %w", result.Provider, err)
	}
	return &b, nil
}
