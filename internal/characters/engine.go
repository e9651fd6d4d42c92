package characters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/imaging"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/cast"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

// Reference images are square.
const referenceSize = 1024

// ProviderSource hands out the current provider chains.
// *providers.Registry satisfies it.
type ProviderSource interface {
	TextChain() *providers.Chain
	ImageChain() *providers.Chain
}

// EngineConfig configures a character engine.
type EngineConfig struct {
	Providers ProviderSource
	Prompts   *prompts.Resolver

	// Store holds registered characters. Optional.
	Store Store

	// Cache is shared between engines. A private cache is created when nil.
	Cache *ReferenceCache

	// Processing is applied to every generated reference image.
	Processing imaging.Options

	// Style is added to reference prompts.
	Style book.Style

	// ReferencePath returns where a character's reference image is written
	// for the current job. When nil, references are kept in the cache only.
	ReferencePath func(c *Character) string

	Logger *slog.Logger
}

// Engine extracts, merges and locks characters for one job.
type Engine struct {
	providers     ProviderSource
	prompts       *prompts.Resolver
	store         Store
	cache         *ReferenceCache
	processing    imaging.Options
	style         book.Style
	referencePath func(c *Character) string
	logger        *slog.Logger
	now           func() time.Time
}

// NewEngine creates an engine with defaults filled in.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = NewReferenceCache(0)
	}
	if cfg.Processing == (imaging.Options{}) {
		cfg.Processing = imaging.DefaultOptions()
	}
	if cfg.Style == "" {
		cfg.Style = book.DefaultStyle
	}
	return &Engine{
		providers:     cfg.Providers,
		prompts:       cfg.Prompts,
		store:         cfg.Store,
		cache:         cfg.Cache,
		processing:    cfg.Processing,
		style:         cfg.Style,
		referencePath: cfg.ReferencePath,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// LoadRequested fetches registered characters by id, in order, skipping
// duplicate ids. An unknown id yields an error wrapping ErrNotFound.
func (e *Engine) LoadRequested(ctx context.Context, ids []string) ([]*Character, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: no character store configured", ErrNotFound)
	}
	seen := make(map[string]bool, len(ids))
	out := make([]*Character, 0, len(ids))
	for _, id := range ids {
		id = NormalizeID(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		c, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Extract asks the text chain for the main characters of a story.
func (e *Engine) Extract(ctx context.Context, theme string, b *book.StoryBook) ([]*Character, error) {
	req, err := cast.BuildRequest(ctx, e.prompts, cast.Input{Theme: theme, Book: b})
	if err != nil {
		return nil, err
	}
	res, err := e.providers.TextChain().GenerateText(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("extract characters: %w", err)
	}
	extracted, err := cast.Parse(res)
	if err != nil {
		return nil, fmt.Errorf("extract characters: %w", err)
	}

	now := e.now().UTC()
	seen := make(map[string]bool, len(extracted))
	out := make([]*Character, 0, len(extracted))
	for _, x := range extracted {
		c := &Character{
			ID:                  SanitizeID(x.Name),
			Name:                x.Name,
			Species:             x.Species,
			PhysicalDescription: x.PhysicalDescription,
			KeyFeatures:         x.KeyFeatures,
			ColorPalette:        x.ColorPalette,
			Source:              SourceExtracted,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if seen[c.Identity()] {
			continue
		}
		seen[c.Identity()] = true
		c.RefinedPrompt = RefinedPrompt(c)
		out = append(out, c)
	}
	e.logger.Info("characters extracted", "count", len(out), "provider", res.Provider)
	return out, nil
}

// Resolve merges requested and extracted characters. Two characters are the
// same when their identity keys (or ids) are equal; the requested entry wins
// and the extracted duplicate is discarded. Requested characters come first.
func (e *Engine) Resolve(requested, extracted []*Character) []*Character {
	byIdentity := make(map[string]bool)
	byID := make(map[string]bool)
	out := make([]*Character, 0, len(requested)+len(extracted))

	add := func(c *Character) bool {
		if c == nil || byIdentity[c.Identity()] || byID[c.ID] {
			return false
		}
		byIdentity[c.Identity()] = true
		byID[c.ID] = true
		out = append(out, c)
		return true
	}
	for _, c := range requested {
		add(c)
	}
	for _, c := range extracted {
		if !add(c) {
			e.logger.Debug("discarding extracted duplicate", "name", c.Name, "id", c.ID)
		}
	}
	return out
}

// EnsureReference generates and locks a character's reference image.
//
// A character that already has a seed and a reference image is returned
// unchanged. Otherwise the seed (the existing one, or one derived from the
// name) is sent with the reference prompt through the image chain; only after
// a successful generation is the seed locked on the returned copy. Registered
// characters are written back to the store.
//
// On failure the original character is returned along with the error, so the
// caller can continue without a locked seed.
func (e *Engine) EnsureReference(ctx context.Context, c *Character) (*Character, error) {
	if c.Locked() {
		return c, nil
	}

	seed := DeriveSeed(c.Name)
	if c.Seed != nil {
		seed = *c.Seed
	}

	res, err := e.providers.ImageChain().GenerateImage(ctx, &providers.ImageRequest{
		Prompt: ReferencePrompt(c, e.style),
		Seed:   &seed,
		Width:  referenceSize,
		Height: referenceSize,
	})
	if err != nil {
		e.logger.Warn("character reference generation failed; continuing without a locked seed",
			"character", c.Name, "error", err)
		return c, fmt.Errorf("reference image for %s: %w", c.Name, err)
	}
	png, err := imaging.Process(res.Data, e.processing)
	if err != nil {
		e.logger.Warn("character reference processing failed; continuing without a locked seed",
			"character", c.Name, "error", err)
		return c, fmt.Errorf("reference image for %s: %w", c.Name, err)
	}

	out := c.Clone()
	out.Seed = &seed
	out.HasImage = true
	out.UpdatedAt = e.now().UTC()

	if c.Source == SourceRegistered && e.store != nil {
		stored, err := e.store.SetReference(ctx, c.ID, seed, png)
		if err != nil {
			e.logger.Warn("failed to store reference image", "character", c.Name, "error", err)
		} else {
			out = stored
		}
	}

	if e.referencePath != nil {
		path := e.referencePath(out)
		if err := writeFile(path, png); err != nil {
			e.logger.Warn("failed to write reference image", "character", c.Name, "path", path, "error", err)
		} else {
			out.ReferenceImage = path
		}
	}

	e.cache.Set(out, png)
	e.logger.Info("character reference locked", "character", out.Name, "seed", seed, "provider", res.Provider)
	return out, nil
}

// ReferenceImage returns a character's processed reference image from the
// cache, the store or disk.
func (e *Engine) ReferenceImage(ctx context.Context, c *Character) ([]byte, error) {
	if !c.HasImage {
		return nil, fmt.Errorf("%w: %s has no reference image", ErrNotFound, c.Name)
	}
	if data, ok := e.cache.Get(c); ok {
		return data, nil
	}

	var data []byte
	var err error
	switch {
	case c.Source == SourceRegistered && e.store != nil:
		data, err = e.store.Image(ctx, c.ID)
	case c.ReferenceImage != "":
		data, err = os.ReadFile(c.ReferenceImage)
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrNotFound, c.ReferenceImage)
		}
	default:
		err = fmt.Errorf("%w: %s has no reference image", ErrNotFound, c.Name)
	}
	if err != nil {
		return nil, err
	}
	e.cache.Set(c, data)
	return data, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
