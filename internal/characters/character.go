// Package characters keeps recurring story characters visually consistent.
//
// Each character carries a seed that is locked once its reference image has
// been generated. Every later image request that involves the character
// reuses that seed together with the character's physical description.
package characters

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Source records how a character entered a job.
type Source string

const (
	SourceRegistered Source = "registered"
	SourceExtracted  Source = "extracted"
)

// IDPrefix starts every character id.
const IDPrefix = "chr_"

// Character is the visual identity of a story character.
type Character struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Species             string            `json:"species,omitempty"`
	PhysicalDescription string            `json:"physical_description"`
	KeyFeatures         []string          `json:"key_features,omitempty"`
	ColorPalette        map[string]string `json:"color_palette,omitempty"`
	Tags                []string          `json:"tags,omitempty"`

	// Seed is locked once a reference image exists.
	Seed          *int64 `json:"seed,omitempty"`
	RefinedPrompt string `json:"refined_prompt,omitempty"`

	// HasImage reports whether a reference image exists. ReferenceImage is
	// its file path when the image lives on disk.
	HasImage       bool   `json:"has_image"`
	ReferenceImage string `json:"-"`

	Source    Source    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Locked reports whether the character has both a seed and a reference image.
func (c *Character) Locked() bool {
	return c.Seed != nil && c.HasImage
}

// Identity returns the key used to decide whether two characters are the same.
func (c *Character) Identity() string {
	return IdentityKey(c.Name)
}

// Clone returns a deep copy.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	out := *c
	out.KeyFeatures = append([]string(nil), c.KeyFeatures...)
	out.Tags = append([]string(nil), c.Tags...)
	if c.ColorPalette != nil {
		out.ColorPalette = make(map[string]string, len(c.ColorPalette))
		for k, v := range c.ColorPalette {
			out.ColorPalette[k] = v
		}
	}
	if c.Seed != nil {
		seed := *c.Seed
		out.Seed = &seed
	}
	return &out
}

// Validate checks the fields a caller must supply when registering a character.
func (c *Character) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("character name is required")
	}
	if strings.TrimSpace(c.PhysicalDescription) == "" {
		return fmt.Errorf("physical description is required for %q", c.Name)
	}
	if c.Seed != nil && *c.Seed < 0 {
		return fmt.Errorf("seed must be non-negative")
	}
	return nil
}

// IdentityKey normalizes a name for identity comparison: NFKC, Unicode case
// folding and whitespace collapsed to single spaces.
func IdentityKey(name string) string {
	s := norm.NFKC.String(name)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// SanitizeID turns a name into a character id: chr_ followed by the
// lowercased letters, digits, dashes and underscores of the name, with
// whitespace runs replaced by a single underscore.
func SanitizeID(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKC.String(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	s := b.String()
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")
	if !strings.HasPrefix(s, IDPrefix) {
		s = IDPrefix + s
	}
	if s == IDPrefix {
		s = IDPrefix + "unnamed"
	}
	return s
}

// DeriveSeed returns the deterministic seed for a name: the first four bytes
// of SHA-256 over the identity key, masked to 31 bits.
func DeriveSeed(name string) int64 {
	sum := sha256.Sum256([]byte(IdentityKey(name)))
	return int64(binary.BigEndian.Uint32(sum[:4]) & 0x7FFFFFFF)
}

// BasePrompt returns the refined design prompt for the character, building
// it when the character has none.
func (c *Character) BasePrompt() string {
	if c.RefinedPrompt != "" {
		return c.RefinedPrompt
	}
	return RefinedPrompt(c)
}

// RefinedPrompt builds the base design prompt (no pose or action) from the
// character's description.
func RefinedPrompt(c *Character) string {
	var parts []string
	if c.Species != "" {
		parts = append(parts, fmt.Sprintf("%s, a %s", c.Name, c.Species))
	} else {
		parts = append(parts, c.Name)
	}
	if d := strings.TrimSpace(c.PhysicalDescription); d != "" {
		parts = append(parts, d)
	}
	if len(c.KeyFeatures) > 0 {
		parts = append(parts, "Distinctive features: "+strings.Join(c.KeyFeatures, ", "))
	}
	if palette := paletteText(c.ColorPalette); palette != "" {
		parts = append(parts, "Color scheme: "+palette)
	}
	parts = append(parts,
		"sticker-style character design",
		"Children's book illustration style, cute and friendly",
	)
	return strings.Join(parts, ", ")
}

// Reference is a short description used inside scene prompts.
func (c *Character) Reference() string {
	parts := []string{c.Name}
	if c.Species != "" {
		parts = append(parts, "("+c.Species+")")
	}
	if len(c.KeyFeatures) > 0 {
		n := min(2, len(c.KeyFeatures))
		parts = append(parts, "Features: "+strings.Join(c.KeyFeatures[:n], ", "))
	}
	if primary := c.PrimaryColor(); primary != "" {
		parts = append(parts, "Color: "+primary)
	}
	if d := strings.TrimSpace(c.PhysicalDescription); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, " - ")
}

// PrimaryColor returns the first of primary, skin or hair colour that is set.
func (c *Character) PrimaryColor() string {
	for _, k := range []string{"primary_color", "skin_color", "hair_color"} {
		if v := c.ColorPalette[k]; v != "" {
			return v
		}
	}
	return ""
}

// paletteText renders "Primary Color: orange, Eye Color: gold" with keys sorted.
func paletteText(palette map[string]string) string {
	keys := make([]string, 0, len(palette))
	for k, v := range palette {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	title := cases.Title(language.Und)
	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = fmt.Sprintf("%s: %s", title.String(strings.ReplaceAll(k, "_", " ")), palette[k])
	}
	return strings.Join(items, ", ")
}
