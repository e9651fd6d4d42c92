package characters

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Emotion is the dominant feeling detected in a passage.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionScared    Emotion = "scared"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionSurprised Emotion = "surprised"
	EmotionConfused  Emotion = "confused"
	EmotionProud     Emotion = "proud"
	EmotionCurious   Emotion = "curious"
)

// Checked in order; the first emotion with a matching keyword wins.
var emotionKeywords = []struct {
	emotion  Emotion
	keywords []string
}{
	{EmotionHappy, []string{"happy", "joyful", "cheerful", "smiling", "delighted", "excited", "laughing", "grinning", "gleeful", "merry", "pleased", "glad"}},
	{EmotionScared, []string{"scared", "afraid", "frightened", "terrified", "panicked", "alarmed"}},
	{EmotionSad, []string{"sad", "unhappy", "crying", "tears", "disappointed", "upset", "sobbing", "weeping", "melancholy", "heartbroken", "sorrowful"}},
	{EmotionAngry, []string{"angry", "furious", "annoyed", "frustrated", "irritated", "enraged", "outraged"}},
	{EmotionSurprised, []string{"surprised", "shocked", "amazed", "astonished", "startled", "stunned"}},
	{EmotionConfused, []string{"confused", "puzzled", "perplexed", "mystified"}},
	{EmotionProud, []string{"proud", "triumphant", "confident"}},
	{EmotionCurious, []string{"curious", "inquisitive", "interested", "intrigued"}},
}

var emotionDetails = map[Emotion]string{
	EmotionHappy:     "with a big wide smile, bright eyes, cheerful expression, joyful facial features",
	EmotionSad:       "with a downturned mouth, teary eyes, sad expression, drooping facial features",
	EmotionAngry:     "with a furrowed brow, narrowed eyes, angry expression, frowning mouth",
	EmotionScared:    "with wide eyes showing fear, open mouth, scared expression, worried facial features",
	EmotionSurprised: "with wide-open eyes, raised eyebrows, surprised expression, open mouth",
	EmotionConfused:  "with raised eyebrows, tilted head, puzzled expression, questioning look",
	EmotionProud:     "with a confident smile, lifted head, proud expression, determined eyes",
	EmotionCurious:   "with bright interested eyes, slightly tilted head, curious expression, attentive look",
	EmotionNeutral:   "with a friendly neutral expression, kind eyes, gentle smile",
}

// DetectEmotion finds the first emotion whose keyword appears as a whole word in text.
func DetectEmotion(text string) Emotion {
	lower := strings.ToLower(text)
	for _, e := range emotionKeywords {
		for _, kw := range e.keywords {
			if containsWord(lower, kw) {
				return e.emotion
			}
		}
	}
	return EmotionNeutral
}

// Detail returns the facial-expression text for the emotion.
func (e Emotion) Detail() string {
	if d, ok := emotionDetails[e]; ok {
		return d
	}
	return emotionDetails[EmotionNeutral]
}

// Clause is the prompt fragment that asks for the emotion on every character face.
func (e Emotion) Clause() string {
	return "characters shown " + e.Detail() + ", " + string(e) + " emotion clearly visible in facial expression"
}

// containsWord reports whether word occurs in text bounded by non-word runes.
// Both arguments are expected lowercased.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		if !wordRuneBefore(text, i) && !wordRuneAt(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
}

func wordRuneBefore(s string, i int) bool {
	if i <= 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
