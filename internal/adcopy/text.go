package adcopy

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ensureSentence trims text and appends a period unless it already ends
// in terminal punctuation. Blank input stays blank.
func ensureSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return text
	}
	return text + "."
}

// titleCase upper-cases the first rune of each space-separated word and
// leaves the rest of the word alone.
func titleCase(text string) string {
	words := strings.Split(strings.TrimSpace(text), " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func capitalize(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if size == 0 {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}

// describePalette renders "A as the hero hue", "A anchored by B" or
// "A anchored by B, C and D". Input must already be normalized.
func describePalette(colors []string) string {
	switch len(colors) {
	case 0:
		return ""
	case 1:
		return colors[0] + " as the hero hue"
	case 2:
		return colors[0] + " anchored by " + colors[1]
	}
	rest := colors[1:]
	return colors[0] + " anchored by " + strings.Join(rest[:len(rest)-1], ", ") + " and " + rest[len(rest)-1]
}

func joinSentences(fragments ...string) string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = ensureSentence(f); f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
