package layout

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// Wrap breaks text into lines no wider than width as reported by measure.
// Newlines start a new paragraph; blank lines separate paragraphs. Words
// wider than a whole line are split between runes.
func Wrap(measure func(string) float64, text string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			if len(lines) > 0 && lines[len(lines)-1] != "" {
				lines = append(lines, "")
			}
			continue
		}
		line := ""
		for _, w := range words {
			if measure(w) > width {
				parts := breakWord(measure, w, width)
				if line != "" {
					lines = append(lines, line)
				}
				lines = append(lines, parts[:len(parts)-1]...)
				line = parts[len(parts)-1]
				continue
			}
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if line == "" || measure(candidate) <= width {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = w
		}
		lines = append(lines, line)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func breakWord(measure func(string) float64, w string, width float64) []string {
	var parts []string
	start := 0
	for i := 0; i < len(w); {
		_, size := utf8.DecodeRuneInString(w[i:])
		if i > start && measure(w[start:i+size]) > width {
			parts = append(parts, w[start:i])
			start = i
		}
		i += size
	}
	return append(parts, w[start:])
}

// Truncate limits lines to maxLines. When lines are dropped, the last kept
// line loses trailing words until it fits with an ellipsis appended.
func Truncate(measure func(string) float64, lines []string, maxLines int, width float64) ([]string, bool) {
	if len(lines) <= maxLines {
		return lines, false
	}
	if maxLines <= 0 {
		return nil, true
	}
	out := append([]string(nil), lines[:maxLines]...)
	last := out[maxLines-1]
	for {
		candidate := strings.TrimRight(last, " ,;:.!?") + Ellipsis
		if last == "" {
			candidate = Ellipsis
		}
		if last == "" || measure(candidate) <= width {
			out[maxLines-1] = candidate
			break
		}
		if i := strings.LastIndex(last, " "); i > 0 {
			last = last[:i]
		} else {
			last = ""
		}
	}
	return out, true
}
