package characters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a character id is unknown.
	ErrNotFound = errors.New("character not found")

	// ErrAlreadyExists is returned when creating a character whose id is taken.
	ErrAlreadyExists = errors.New("character already exists")
)

// Store persists registered characters and their reference images.
// Implementations must give a single caller read-after-write consistency.
type Store interface {
	// Create saves a new character. The id is derived from the name when empty.
	Create(ctx context.Context, c *Character) (*Character, error)

	// Get loads a character by id.
	Get(ctx context.Context, id string) (*Character, error)

	// Update replaces a character's fields, keeping its id and creation time.
	Update(ctx context.Context, id string, c *Character) (*Character, error)

	// Delete removes a character and its image.
	Delete(ctx context.Context, id string) error

	// List returns all characters sorted by name.
	List(ctx context.Context) ([]*Character, error)

	// SetReference stores a reference image and locks the seed in one write.
	SetReference(ctx context.Context, id string, seed int64, png []byte) (*Character, error)

	// Image returns the reference image bytes.
	Image(ctx context.Context, id string) ([]byte, error)
}

// NormalizeID accepts ids with or without the chr_ prefix. Path separators
// and other punctuation are dropped, so the result is always a safe folder name.
func NormalizeID(id string) string {
	return SanitizeID(id)
}

// prepare fills in the derived fields of a character about to be stored.
func prepare(c *Character) (*Character, error) {
	if c == nil {
		return nil, fmt.Errorf("nil character")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := c.Clone()
	out.Name = strings.TrimSpace(out.Name)
	if out.ID == "" {
		out.ID = SanitizeID(out.Name)
	} else {
		out.ID = NormalizeID(out.ID)
	}
	out.Source = SourceRegistered
	out.RefinedPrompt = RefinedPrompt(out)
	return out, nil
}

func sortByName(chars []*Character) {
	sort.SliceStable(chars, func(i, j int) bool {
		return IdentityKey(chars[i].Name) < IdentityKey(chars[j].Name)
	})
}
