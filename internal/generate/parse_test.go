package generate

import (
	"errors"
	"testing"
)

func TestParseArticlePlainJSON(t *testing.T) {
	raw := `{"headline":"Dam levels hit record low","content":"Officials warned...","tags":["water","drought"],"category":"disaster","image_keyword":"dry reservoir","date":"2024-03-10"}`
	art, err := ParseArticle(raw)
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}
	if art.Headline != "Dam levels hit record low" {
		t.Errorf("headline = %q", art.Headline)
	}
	if len(art.Tags) != 2 {
		t.Errorf("tags = %v", art.Tags)
	}
}

func TestParseArticleStripsFences(t *testing.T) {
	raw := "Sure, here is the article:\n```json\n{\"headline\":\"H\",\"content\":\"C\"}\n```\nLet me know if you need edits."
	art, err := ParseArticle(raw)
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}
	if art.Headline != "H" || art.Content != "C" {
		t.Errorf("got %+v", art)
	}
}

func TestParseArticleTakesFirstBalancedObject(t *testing.T) {
	raw := `prefix {"headline":"First","content":"body with a } inside a string? no: \"quoted {brace}\""} {"headline":"Second","content":"x"}`
	art, err := ParseArticle(raw)
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}
	if art.Headline != "First" {
		t.Errorf("expected first object, got headline %q", art.Headline)
	}
}

func TestParseArticleNestedBraces(t *testing.T) {
	raw := `{"headline":"H","content":"C","extra":{"nested":{"deep":1}}}`
	art, err := ParseArticle(raw)
	if err != nil {
		t.Fatalf("nested braces broke extraction: %v", err)
	}
	if art.Headline != "H" {
		t.Errorf("headline = %q", art.Headline)
	}
}

func TestParseArticleNoJSON(t *testing.T) {
	if _, err := ParseArticle("I cannot help with that request."); !errors.Is(err, ErrNoPayload) {
		t.Errorf("expected ErrNoPayload, got %v", err)
	}
}

func TestParseArticleMissingFields(t *testing.T) {
	cases := []string{
		`{"headline":"only a headline"}`,
		`{"content":"only content"}`,
		`{"headline":"  ","content":"body"}`,
	}
	for _, raw := range cases {
		if _, err := ParseArticle(raw); !errors.Is(err, ErrIncomplete) {
			t.Errorf("ParseArticle(%q) err = %v, want ErrIncomplete", raw, err)
		}
	}
}

func TestParseArticleTruncatedObject(t *testing.T) {
	if _, err := ParseArticle(`{"headline":"H","content":"cut off`); !errors.Is(err, ErrNoPayload) {
		t.Errorf("unterminated object must be ErrNoPayload, got %v", err)
	}
}
