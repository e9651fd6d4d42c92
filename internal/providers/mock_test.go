package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"testing"
)

func TestMockProvider_Story(t *testing.T) {
	m := NewMockProvider()
	res, err := m.GenerateText(context.Background(), &TextRequest{Kind: KindStory, Pages: 4})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}

	var story struct {
		Title string `json:"title"`
		Beats []struct {
			Text            string   `json:"text"`
			StickerSubjects []string `json:"sticker_subjects"`
		} `json:"beats"`
	}
	if err := json.Unmarshal([]byte(res.Content), &story); err != nil {
		t.Fatalf("story is not JSON: %v", err)
	}
	if len(story.Beats) != 4 {
		t.Errorf("expected 4 beats, got %d", len(story.Beats))
	}
	if story.Title == "" {
		t.Error("expected a title")
	}
}

func TestMockProvider_Localize(t *testing.T) {
	m := NewMockProvider()
	req := &TextRequest{
		Kind:     KindLocalize,
		Language: "es",
		User:     "Translate this story:\n" + `{"title":"Moon","beats":[{"text":"hi"}]}`,
	}
	res, err := m.GenerateText(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatalf("localized output is not JSON: %v", err)
	}
	if out["title"] != "[es] Moon" {
		t.Errorf("unexpected title %v", out["title"])
	}

	t.Run("no story in prompt", func(t *testing.T) {
		_, err := m.GenerateText(context.Background(), &TextRequest{
			Kind:     KindLocalize,
			Language: "es",
			User:     "Translate nothing at all.",
		})
		if !errors.Is(err, ErrNoJSON) {
			t.Errorf("error = %v, want ErrNoJSON", err)
		}
	})
}

func TestMockProvider_ImageDeterministic(t *testing.T) {
	m := NewMockProvider()
	seed := int64(42)
	req := &ImageRequest{Prompt: "a fox", Seed: &seed, Width: 32, Height: 24}

	a, err := m.GenerateImage(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	b, _ := m.GenerateImage(context.Background(), req)
	if !bytes.Equal(a.Data, b.Data) {
		t.Error("same prompt and seed should produce identical images")
	}

	img, err := png.Decode(bytes.NewReader(a.Data))
	if err != nil {
		t.Fatalf("mock image is not PNG: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("unexpected size %v", img.Bounds())
	}
	if got := m.LastSeed(); got == nil || *got != 42 {
		t.Errorf("expected last seed 42, got %v", got)
	}
	if m.RequestCount() != 2 {
		t.Errorf("expected 2 requests, got %d", m.RequestCount())
	}
}

func TestMockProvider_FailAfter(t *testing.T) {
	m := NewMockProvider()
	m.FailAfter = 1
	if _, err := m.GenerateImage(context.Background(), &ImageRequest{Prompt: "x", Width: 4, Height: 4}); err != nil {
		t.Fatalf("first request should succeed: %v", err)
	}
	if _, err := m.GenerateImage(context.Background(), &ImageRequest{Prompt: "x", Width: 4, Height: 4}); err == nil {
		t.Fatal("second request should fail")
	}
}
