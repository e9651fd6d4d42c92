package characters

import (
	"strings"
	"testing"
)

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"Pip", "pip", true},
		{"  Pip   the Fox ", "pip the fox", true},
		{"Ｐｉｐ", "pip", true}, // fullwidth letters fold under NFKC
		{"Pip", "Pippa", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := IdentityKey(tt.a) == IdentityKey(tt.b); got != tt.same {
				t.Errorf("IdentityKey(%q) == IdentityKey(%q) = %v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Pip the Fox!", "chr_pip_the_fox"},
		{"  Luna  ", "chr_luna"},
		{"chr_Luna", "chr_luna"},
		{"../../etc/passwd", "chr_etcpasswd"},
		{"", "chr_unnamed"},
		{"!!!", "chr_unnamed"},
		{"Señor Búho", "chr_señor_búho"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeID(tt.in); got != tt.want {
				t.Errorf("SanitizeID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDeriveSeed(t *testing.T) {
	a := DeriveSeed("Pip")
	if a != DeriveSeed("Pip") {
		t.Fatal("seed is not deterministic")
	}
	if a != DeriveSeed(" pip ") {
		t.Error("seed should follow identity, not spelling")
	}
	if a < 0 || a > 0x7FFFFFFF {
		t.Errorf("seed %d outside 31-bit range", a)
	}
	if a == DeriveSeed("Luna") {
		t.Error("different names produced the same seed")
	}
}

func TestRefinedPrompt(t *testing.T) {
	c := &Character{
		Name:                "Pip",
		Species:             "fox",
		PhysicalDescription: "a small orange fox",
		KeyFeatures:         []string{"white-tipped tail", "green scarf"},
		ColorPalette:        map[string]string{"primary_color": "orange", "eye_color": "amber", "hair_color": ""},
	}
	got := RefinedPrompt(c)
	for _, want := range []string{
		"Pip, a fox",
		"a small orange fox",
		"Distinctive features: white-tipped tail, green scarf",
		"Color scheme: Eye Color: amber, Primary Color: orange",
		"Children's book illustration style",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RefinedPrompt() missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Hair Color") {
		t.Error("empty palette entries should be skipped")
	}
	if c.BasePrompt() != got {
		t.Error("BasePrompt should build the refined prompt when none is stored")
	}
}

func TestCloneIsDeep(t *testing.T) {
	seed := int64(7)
	c := &Character{
		Name:         "Pip",
		KeyFeatures:  []string{"tail"},
		ColorPalette: map[string]string{"primary_color": "orange"},
		Seed:         &seed,
	}
	d := c.Clone()
	d.KeyFeatures[0] = "ears"
	d.ColorPalette["primary_color"] = "red"
	*d.Seed = 9

	if c.KeyFeatures[0] != "tail" || c.ColorPalette["primary_color"] != "orange" || *c.Seed != 7 {
		t.Errorf("Clone shares state with the original: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	neg := int64(-1)
	tests := []struct {
		name    string
		c       Character
		wantErr bool
	}{
		{"ok", Character{Name: "Pip", PhysicalDescription: "fox"}, false},
		{"no name", Character{PhysicalDescription: "fox"}, true},
		{"no description", Character{Name: "Pip"}, true},
		{"negative seed", Character{Name: "Pip", PhysicalDescription: "fox", Seed: &neg}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
