package storybook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/characters"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
)

// MaxThemeLength bounds the free-text theme in runes.
const MaxThemeLength = 500

// GenerateRequest is a caller's request for a new storybook.
type GenerateRequest struct {
	Theme        string   `json:"theme,omitempty"`
	NumPages     int      `json:"num_pages,omitempty"` // 0 selects the configured default
	Style        string   `json:"style,omitempty"`     // Empty selects the configured default
	Languages    []string `json:"languages,omitempty"` // Empty selects the configured default
	PODReady     bool     `json:"pod_ready,omitempty"`
	CharacterIDs []string `json:"character_ids,omitempty"`
}

// ValidationError is returned synchronously for malformed requests.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// normalize validates req against defaults and the character store and
// returns the request recorded on the job.
func normalize(ctx context.Context, req GenerateRequest, s Settings, store characters.Store) (jobs.Request, error) {
	out := jobs.Request{Theme: strings.TrimSpace(req.Theme), PODReady: req.PODReady}

	if utf8.RuneCountInString(out.Theme) > MaxThemeLength {
		return out, &ValidationError{Field: "theme", Message: fmt.Sprintf("longer than %d characters", MaxThemeLength)}
	}

	out.Pages = req.NumPages
	if out.Pages == 0 {
		out.Pages = s.DefaultPages
	}
	if out.Pages < book.MinPages || out.Pages > book.MaxPages {
		return out, &ValidationError{Field: "num_pages", Message: fmt.Sprintf("%d is outside %d-%d", req.NumPages, book.MinPages, book.MaxPages)}
	}

	styleName := req.Style
	if strings.TrimSpace(styleName) == "" {
		styleName = string(s.DefaultStyle)
	}
	style, err := book.ParseStyle(styleName)
	if err != nil {
		return out, &ValidationError{Field: "style", Message: err.Error()}
	}
	out.Style = string(style)

	langs := req.Languages
	if len(langs) == 0 {
		langs = s.DefaultLanguages
	}
	out.Languages, err = book.NormalizeLanguages(langs)
	if err != nil {
		return out, &ValidationError{Field: "languages", Message: err.Error()}
	}

	seen := make(map[string]bool, len(req.CharacterIDs))
	for _, raw := range req.CharacterIDs {
		if strings.TrimSpace(raw) == "" {
			return out, &ValidationError{Field: "character_ids", Message: "empty character id"}
		}
		id := characters.NormalizeID(raw)
		if seen[id] {
			continue
		}
		seen[id] = true
		if store == nil {
			return out, &ValidationError{Field: "character_ids", Message: "no character store configured"}
		}
		if _, err := store.Get(ctx, id); err != nil {
			if errors.Is(err, characters.ErrNotFound) {
				return out, &ValidationError{Field: "character_ids", Message: fmt.Sprintf("unknown character %q", raw)}
			}
			return out, fmt.Errorf("look up character %s: %w", id, err)
		}
		out.CharacterIDs = append(out.CharacterIDs, id)
	}
	return out, nil
}
