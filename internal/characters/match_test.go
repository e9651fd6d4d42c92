package characters

import (
	"reflect"
	"testing"

	"github.com/guillermopickman-spec/story-booker/internal/book"
)

func testCast() []*Character {
	return []*Character{
		{ID: "chr_pip", Name: "Pip", Species: "fox", PhysicalDescription: "small orange fox"},
		{ID: "chr_luna_moon", Name: "Luna Moon", Species: "owl", PhysicalDescription: "grey owl"},
	}
}

func TestMatchSubject(t *testing.T) {
	chars := testCast()
	tests := []struct {
		subject string
		want    string
	}{
		{"Pip", "Pip"},
		{"the fox", "Pip"},
		{"a wise owl", "Luna Moon"},
		{"Luna", "Luna Moon"},
		{"a tall oak tree", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got := MatchSubject(tt.subject, chars)
			name := ""
			if got != nil {
				name = got.Name
			}
			if name != tt.want {
				t.Errorf("MatchSubject(%q) = %q, want %q", tt.subject, name, tt.want)
			}
		})
	}
}

func TestEnsureInBeats(t *testing.T) {
	chars := testCast()
	chars = append(chars, &Character{ID: "chr_bo", Name: "Bo", Species: "bear", PhysicalDescription: "brown bear"})

	b := &book.StoryBook{
		Title: "Woods",
		Beats: []book.Beat{
			{Text: "Pip ran through the trees.", StickerSubjects: []string{"tree"}},
			{Text: "The fox met Luna Moon.", StickerSubjects: []string{"the fox"}},
			{Text: "Night fell.", StickerSubjects: nil},
		},
	}
	EnsureInBeats(b, chars, map[string]bool{IdentityKey("Bo"): true})

	want := [][]string{
		{"tree", "Pip", "Bo"},
		{"the fox", "Luna Moon"},
		nil,
	}
	for i := range want {
		if !reflect.DeepEqual(b.Beats[i].StickerSubjects, want[i]) {
			t.Errorf("beat %d subjects = %q, want %q", i+1, b.Beats[i].StickerSubjects, want[i])
		}
	}
}

func TestInBeat(t *testing.T) {
	chars := testCast()
	beat := book.Beat{
		Text:              "Pip looked up.",
		VisualDescription: "a fox under a tree",
		StickerSubjects:   []string{"owl"},
	}
	got := InBeat(beat, chars)
	if len(got) != 2 || got[0].Name != "Pip" || got[1].Name != "Luna Moon" {
		t.Errorf("InBeat() = %v", got)
	}
	if len(InBeat(book.Beat{Text: "Rain."}, chars)) != 0 {
		t.Error("no characters expected")
	}
}
