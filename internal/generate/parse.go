package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Article is the validated structured output of a generation provider.
type Article struct {
	Headline     string   `json:"headline"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags"`
	Category     string   `json:"category"`
	ImageKeyword string   `json:"image_keyword"`
	Date         string   `json:"date"`
}

// Parse failures are soft: the orchestrator advances to the next provider
// without touching rate-limit state.
var (
	ErrNoPayload  = errors.New("response contains no JSON object")
	ErrIncomplete = errors.New("response missing headline or content")
)

// ParseArticle extracts and validates a structured article from raw model
// output. Models routinely wrap JSON in markdown fences or chatter around
// it, so we strip fences, take the first balanced {...} block, and only
// then unmarshal.
func ParseArticle(raw string) (*Article, error) {
	cleaned := stripFences(raw)
	payload := firstBalancedObject(cleaned)
	if payload == "" {
		return nil, ErrNoPayload
	}

	var art Article
	if err := json.Unmarshal([]byte(payload), &art); err != nil {
		return nil, fmt.Errorf("decode article JSON: %w", err)
	}

	art.Headline = strings.TrimSpace(art.Headline)
	art.Content = strings.TrimSpace(art.Content)
	if art.Headline == "" || art.Content == "" {
		return nil, ErrIncomplete
	}
	return &art, nil
}

// stripFences removes markdown code fences (```json ... ```), keeping the
// inner text.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// firstBalancedObject returns the first brace-balanced {...} block,
// tracking JSON string literals so braces inside values do not confuse the
// depth count.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
