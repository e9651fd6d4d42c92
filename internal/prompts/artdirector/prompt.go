// Package artdirector holds the prompt that turns a story beat into an image prompt.
package artdirector

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
	SystemKey = "artdirector.system"
	UserKey   = "artdirector.user"
)

// RegisterPrompts registers the art director prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Art director system prompt - writes one image prompt per story beat",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Art director user prompt - carries the beat text, scene and subjects",
	})
}

// Input contains one beat and the characters that appear in it.
type Input struct {
	Beat  book.Beat
	Style book.Style

	// Characters are short references ("Pip, a fox, ...") for characters in the beat.
	Characters []string
}

// BuildRequest renders the art director prompts into a text request.
func BuildRequest(ctx context.Context, r *prompts.Resolver, in Input) (*providers.TextRequest, error) {
	data := map[string]any{
		"Style":             in.Style.Description(),
		"Text":              in.Beat.Text,
		"VisualDescription": in.Beat.VisualDescription,
		"Subjects":          in.Beat.StickerSubjects,
		"Characters":        in.Characters,
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
		Kind:        providers.KindPrompt,
		System:      system,
		User:        user,
		Temperature: 0.7,
		MaxTokens:   1024,
		JSON:        true,
		Schema:      Schema,
	}, nil
}

// Result is the parsed art director output.
type Result struct {
	Prompt string `json:"prompt"`
}

// Parse decodes an art director result. An empty prompt falls back to
// a generic sticker prompt for the beat's subjects.
func Parse(result *providers.TextResult, beat book.Beat) (string, error) {
	var res Result
	if err := providers.DecodeJSON(result, &res); err != nil {
		return "", err
	}
	if p := strings.TrimSpace(res.Prompt); p != "" {
		return p, nil
	}
	return FallbackPrompt(beat), nil
}

// FallbackPrompt builds a prompt from the beat alone.
func FallbackPrompt(beat book.Beat) string {
	subject := strings.Join(beat.StickerSubjects, " and ")
	if subject == "" {
		subject = beat.VisualDescription
	}
	return fmt.Sprintf("Sticker-style %s, cute and colorful, clean white background, professional lighting, children's book illustration style", subject)
}
