package characters

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/cast"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

func newTestEngine(t *testing.T, image providers.Provider, store Store) (*Engine, string) {
	t.Helper()
	resolver := prompts.NewResolver(nil, nil)
	cast.RegisterPrompts(resolver)

	var images []providers.Provider
	if image != nil {
		images = []providers.Provider{image}
	}
	dir := t.TempDir()
	e := NewEngine(EngineConfig{
		Providers: providers.NewMockRegistry(nil, images),
		Prompts:   resolver,
		Store:     store,
		ReferencePath: func(c *Character) string {
			return filepath.Join(dir, "character_"+c.ID+".png")
		},
	})
	return e, dir
}

func TestEnsureReferenceIdempotent(t *testing.T) {
	mock := providers.NewMockProvider()
	e, dir := newTestEngine(t, mock, nil)
	ctx := context.Background()

	c := &Character{ID: "chr_pip", Name: "Pip", Species: "fox", PhysicalDescription: "orange fox", Source: SourceExtracted}
	first, err := e.EnsureReference(ctx, c)
	if err != nil {
		t.Fatalf("EnsureReference() error = %v", err)
	}
	if first.Seed == nil || *first.Seed != DeriveSeed("Pip") {
		t.Fatalf("seed = %v, want derived seed %d", first.Seed, DeriveSeed("Pip"))
	}
	if got := mock.LastSeed(); got == nil || *got != *first.Seed {
		t.Errorf("image provider saw seed %v, want %d", got, *first.Seed)
	}
	if c.Seed != nil {
		t.Error("EnsureReference mutated its argument")
	}
	if first.ReferenceImage != filepath.Join(dir, "character_chr_pip.png") {
		t.Errorf("ReferenceImage = %q", first.ReferenceImage)
	}
	if _, err := os.Stat(first.ReferenceImage); err != nil {
		t.Errorf("reference image not written: %v", err)
	}

	calls := mock.RequestCount()
	second, err := e.EnsureReference(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Error("locked character should be returned unchanged")
	}
	if *second.Seed != *first.Seed {
		t.Error("seed changed on second call")
	}
	if mock.RequestCount() != calls {
		t.Error("second call should not generate an image")
	}
}

func TestEnsureReferenceFailureKeepsCharacterUnlocked(t *testing.T) {
	failing := providers.NewMockProvider()
	failing.ShouldFail = true
	e, _ := newTestEngine(t, failing, nil)

	c := &Character{ID: "chr_pip", Name: "Pip", PhysicalDescription: "orange fox", Source: SourceExtracted}
	got, err := e.EnsureReference(context.Background(), c)
	if err == nil {
		t.Fatal("expected error when every image provider fails")
	}
	var exhausted *providers.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Errorf("error should wrap ExhaustedError, got %T: %v", err, err)
	}
	if got != c || got.Seed != nil || got.HasImage {
		t.Errorf("character should come back unlocked: %+v", got)
	}
}

func TestEnsureReferenceWritesBackRegistered(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	registered, err := store.Create(ctx, &Character{Name: "Luna", Species: "owl", PhysicalDescription: "grey owl"})
	if err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, nil, store)

	locked, err := e.EnsureReference(ctx, registered)
	if err != nil {
		t.Fatalf("EnsureReference() error = %v", err)
	}
	if locked.ID != registered.ID || locked.Source != SourceRegistered {
		t.Errorf("identity lost: %+v", locked)
	}

	stored, err := store.Get(ctx, registered.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Locked() || *stored.Seed != *locked.Seed {
		t.Errorf("store not updated: %+v", stored)
	}

	data, err := e.ReferenceImage(ctx, locked)
	if err != nil || len(data) == 0 {
		t.Errorf("ReferenceImage() = %d bytes, %v", len(data), err)
	}

	// A fresh engine (empty cache) still finds the image through the store.
	e2, _ := newTestEngine(t, nil, store)
	if _, err := e2.ReferenceImage(ctx, stored); err != nil {
		t.Errorf("ReferenceImage() from store error = %v", err)
	}
}

func TestEnsureReferenceKeepsRegisteredSeed(t *testing.T) {
	mock := providers.NewMockProvider()
	e, _ := newTestEngine(t, mock, nil)
	seed := int64(777)
	c := &Character{ID: "chr_bo", Name: "Bo", PhysicalDescription: "bear", Seed: &seed, Source: SourceExtracted}

	got, err := e.EnsureReference(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	if *got.Seed != 777 || *mock.LastSeed() != 777 {
		t.Errorf("existing seed not reused: %d / %d", *got.Seed, *mock.LastSeed())
	}
}

func TestResolveRequestedWins(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil)
	seed := int64(5)
	requested := []*Character{{ID: "chr_pip", Name: "Pip", PhysicalDescription: "registered fox", Seed: &seed, Source: SourceRegistered}}
	extracted := []*Character{
		{ID: "chr_pip", Name: "PIP", PhysicalDescription: "extracted fox", Source: SourceExtracted},
		{ID: "chr_luna", Name: "Luna", PhysicalDescription: "owl", Source: SourceExtracted},
		{ID: "chr_luna", Name: " luna ", PhysicalDescription: "owl again", Source: SourceExtracted},
	}

	got := e.Resolve(requested, extracted)
	if len(got) != 2 {
		t.Fatalf("Resolve() returned %d characters, want 2", len(got))
	}
	if got[0] != requested[0] {
		t.Error("requested character must be kept as-is")
	}
	if got[0].PhysicalDescription != "registered fox" || *got[0].Seed != 5 {
		t.Errorf("requested character changed: %+v", got[0])
	}
	if got[1].Name != "Luna" {
		t.Errorf("second character = %q", got[1].Name)
	}
}

func TestExtractWithMock(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil)
	b := &book.StoryBook{Title: "Woods", Language: "en", Beats: []book.Beat{{Index: 1, Text: "Pip met Luna."}}}

	chars, err := e.Extract(context.Background(), "forest", b)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(chars) != 2 || chars[0].Name != "Pip" || chars[1].Name != "Luna" {
		t.Fatalf("Extract() = %+v", chars)
	}
	for _, c := range chars {
		if c.Source != SourceExtracted || c.RefinedPrompt == "" || c.Seed != nil {
			t.Errorf("unexpected extracted character: %+v", c)
		}
	}
	if chars[0].ID != "chr_pip" {
		t.Errorf("ID = %q", chars[0].ID)
	}
}

func TestLoadRequested(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, &Character{Name: "Pip", PhysicalDescription: "fox"}); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, nil, store)

	got, err := e.LoadRequested(ctx, []string{"chr_pip", "pip"})
	if err != nil {
		t.Fatalf("LoadRequested() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("duplicate ids should collapse, got %d", len(got))
	}

	if _, err := e.LoadRequested(ctx, []string{"chr_pip", "chr_ghost"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadRequested(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestReferenceCache(t *testing.T) {
	rc := NewReferenceCache(0)
	seed := int64(1)
	c := &Character{ID: "chr_pip", Seed: &seed}
	rc.Set(c, []byte("png"))
	if data, ok := rc.Get(c); !ok || string(data) != "png" {
		t.Errorf("Get() = %q, %v", data, ok)
	}
	rc.Forget("chr_pip")
	if rc.Len() != 0 {
		t.Errorf("Forget left %d entries", rc.Len())
	}
}

func TestReferenceCacheSeparatesSources(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	registered, err := store.Create(ctx, &Character{Name: "Pip", Species: "fox", PhysicalDescription: "orange fox with a blue scarf"})
	if err != nil {
		t.Fatal(err)
	}

	resolver := prompts.NewResolver(nil, nil)
	cast.RegisterPrompts(resolver)
	shared := NewReferenceCache(0)
	newEngine := func() *Engine {
		dir := t.TempDir()
		return NewEngine(EngineConfig{
			Providers: providers.NewMockRegistry(nil, []providers.Provider{providers.NewMockProvider()}),
			Prompts:   resolver,
			Store:     store,
			Cache:     shared,
			ReferencePath: func(c *Character) string {
				return filepath.Join(dir, "character_"+c.ID+".png")
			},
		})
	}

	locked, err := newEngine().EnsureReference(ctx, registered)
	if err != nil {
		t.Fatalf("EnsureReference(registered) error = %v", err)
	}

	other := newEngine()
	extracted := &Character{
		ID:                  SanitizeID("Pip"),
		Name:                "Pip",
		Species:             "mouse",
		PhysicalDescription: "grey mouse in a red cap",
		Source:              SourceExtracted,
	}
	extractedLocked, err := other.EnsureReference(ctx, extracted)
	if err != nil {
		t.Fatalf("EnsureReference(extracted) error = %v", err)
	}
	if extractedLocked.ID != locked.ID || *extractedLocked.Seed != *locked.Seed {
		t.Fatalf("extracted %s/%d does not share id and seed with registered %s/%d",
			extractedLocked.ID, *extractedLocked.Seed, locked.ID, *locked.Seed)
	}

	want, err := store.Image(ctx, locked.ID)
	if err != nil {
		t.Fatalf("store.Image() error = %v", err)
	}
	got, err := other.ReferenceImage(ctx, locked)
	if err != nil {
		t.Fatalf("ReferenceImage(registered) error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("registered character received the extracted character's reference image")
	}

	fromDisk, err := os.ReadFile(extractedLocked.ReferenceImage)
	if err != nil {
		t.Fatal(err)
	}
	gotExtracted, err := other.ReferenceImage(ctx, extractedLocked)
	if err != nil {
		t.Fatalf("ReferenceImage(extracted) error = %v", err)
	}
	if !bytes.Equal(gotExtracted, fromDisk) {
		t.Error("extracted character lost its own reference image")
	}
	if bytes.Equal(got, gotExtracted) {
		t.Error("registered and extracted characters share one image")
	}
}
