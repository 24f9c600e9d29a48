package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func articleRec(id, url, headline string) ArticleRecord {
	return ArticleRecord{
		ID:                 id,
		SourceURL:          url,
		NormalizedHeadline: headline,
		Headline:           headline,
		Content:            "body",
		Status:             "draft",
		PublishedAt:        time.Now().UTC(),
	}
}

func TestArticleFileInsertIfAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	af, err := NewArticleFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	inserted, err := af.InsertArticleIfAbsent(ctx, articleRec("a", "https://x/1", "flood hits city"))
	if err != nil || !inserted {
		t.Fatalf("first insert = (%v, %v)", inserted, err)
	}

	// Same source URL is a no-op, not an error.
	inserted, err = af.InsertArticleIfAbsent(ctx, articleRec("b", "https://x/1", "different headline"))
	if err != nil || inserted {
		t.Fatalf("source URL conflict = (%v, %v), want no-op", inserted, err)
	}

	// Same normalized headline from another URL is also a no-op.
	inserted, err = af.InsertArticleIfAbsent(ctx, articleRec("c", "https://y/2", "flood hits city"))
	if err != nil || inserted {
		t.Fatalf("headline conflict = (%v, %v), want no-op", inserted, err)
	}
}

func TestArticleFileRollsBackOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.json")
	af, err := NewArticleFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// A path through a regular file cannot be written.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	af.path = filepath.Join(blocker, "articles.json")

	rec := articleRec("a", "https://x/1", "flood hits city")
	if inserted, err := af.InsertArticleIfAbsent(ctx, rec); err == nil || inserted {
		t.Fatalf("insert with failing write = (%v, %v), want error", inserted, err)
	}

	// The failed insert must not leave a phantom record behind.
	af.path = path
	inserted, err := af.InsertArticleIfAbsent(ctx, rec)
	if err != nil || !inserted {
		t.Fatalf("retry after write failure = (%v, %v), want (true, nil)", inserted, err)
	}
}

func TestArticleFileSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	ctx := context.Background()

	af, err := NewArticleFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := af.InsertArticleIfAbsent(ctx, articleRec("a", "https://x/1", "h one")); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewArticleFile(path)
	if err != nil {
		t.Fatal(err)
	}
	inserted, err := reloaded.InsertArticleIfAbsent(ctx, articleRec("b", "https://x/1", "h two"))
	if err != nil || inserted {
		t.Fatalf("duplicate guard lost across reload: (%v, %v)", inserted, err)
	}
}

func TestArticleFileAudioURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	ctx := context.Background()

	af, err := NewArticleFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := af.InsertArticleIfAbsent(ctx, articleRec("rec-1", "https://x/1", "h")); err != nil {
		t.Fatal(err)
	}

	if url, _ := af.AudioURL(ctx, "rec-1"); url != "" {
		t.Fatalf("fresh record has audio %q", url)
	}
	if err := af.SetAudioURL(ctx, "rec-1", "https://assets/a.mp3"); err != nil {
		t.Fatal(err)
	}
	url, err := af.AudioURL(ctx, "rec-1")
	if err != nil || url != "https://assets/a.mp3" {
		t.Fatalf("AudioURL = (%q, %v)", url, err)
	}
	if err := af.SetAudioURL(ctx, "missing", "x"); err == nil {
		t.Error("expected error for unknown record")
	}
}
