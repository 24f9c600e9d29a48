package media

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	urlPattern = regexp.MustCompile(`https?://\S+`)
)

// SanitizeForSpeech prepares article text for synthesis: markup, links and
// emoji read terribly aloud, so they go, whitespace collapses, and the
// result is capped at maxRunes on a word boundary.
func SanitizeForSpeech(text string, maxRunes int) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = urlPattern.ReplaceAllString(text, " ")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSymbol(r) || unicode.In(r, unicode.So, unicode.Sk) {
			continue
		}
		b.WriteRune(r)
	}
	text = strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(text)
	if maxRunes > 0 && len(runes) > maxRunes {
		cut := maxRunes
		for cut > 0 && runes[cut-1] != ' ' {
			cut--
		}
		if cut == 0 {
			cut = maxRunes
		}
		text = strings.TrimSpace(string(runes[:cut]))
	}
	return text
}

// ChunkText splits text into segments of at most size runes, breaking on
// word boundaries where possible. Order is preserved.
func ChunkText(text string, size int) []string {
	if size <= 0 || len([]rune(text)) <= size {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= size {
			chunks = append(chunks, strings.TrimSpace(string(runes)))
			break
		}
		cut := size
		for cut > 0 && runes[cut] != ' ' {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	return chunks
}
