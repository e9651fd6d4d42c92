package book

import (
	"fmt"
	"strings"
)

// Supported languages, keyed by code.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
}

// DefaultLanguage is used when a request names none.
const DefaultLanguage = "en"

// LanguageName returns the English name of a language code.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// Languages returns the supported language codes.
func Languages() []string {
	return []string{"en", "es"}
}

// NormalizeLanguages lowercases codes, drops duplicates keeping first
// occurrence order and rejects unsupported codes. An empty list yields
// the default language.
func NormalizeLanguages(codes []string) ([]string, error) {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		if _, ok := languageNames[c]; !ok {
			return nil, fmt.Errorf("unsupported language %q", c)
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, DefaultLanguage)
	}
	return out, nil
}
