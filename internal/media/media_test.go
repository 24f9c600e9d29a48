package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"newspipe/internal/logger"
)

func init() { logger.Init() }

type fakeGenerator struct {
	name  string
	data  []byte
	err   error
	calls int
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	f.calls++
	return f.url, f.err
}

func TestImageResolveFirstCredentialWins(t *testing.T) {
	first := &fakeGenerator{name: "a", data: []byte{1}}
	second := &fakeGenerator{name: "b", data: []byte{2}}
	up := &fakeUploader{url: "https://assets/img.png"}
	r := NewImageResolver([]ImageGenerator{first, second}, up, time.Second)

	if got := r.Resolve(context.Background(), "sunset"); got != "https://assets/img.png" {
		t.Fatalf("Resolve = %q", got)
	}
	if second.calls != 0 {
		t.Errorf("second credential called %d times, want 0", second.calls)
	}
}

func TestImageResolveAdvancesPastFailures(t *testing.T) {
	first := &fakeGenerator{name: "a", err: errors.New("billing hard limit")}
	second := &fakeGenerator{name: "b", data: []byte{}}
	third := &fakeGenerator{name: "c", data: []byte{7}}
	up := &fakeUploader{url: "https://assets/img.png"}
	r := NewImageResolver([]ImageGenerator{first, second, third}, up, time.Second)

	if got := r.Resolve(context.Background(), "p"); got == "" {
		t.Fatal("third credential should have succeeded")
	}
	if third.calls != 1 {
		t.Errorf("third credential calls = %d, want 1", third.calls)
	}
}

func TestImageResolveUploadFailureAdvances(t *testing.T) {
	gen := &fakeGenerator{name: "a", data: []byte{1}}
	up := &fakeUploader{err: errors.New("asset host down")}
	r := NewImageResolver([]ImageGenerator{gen, gen}, up, time.Second)

	if got := r.Resolve(context.Background(), "p"); got != "" {
		t.Fatalf("upload failures must exhaust to empty, got %q", got)
	}
	if up.calls != 2 {
		t.Errorf("upload attempts = %d, want 2", up.calls)
	}
}

func TestImageResolvePoolExhaustion(t *testing.T) {
	gen := &fakeGenerator{name: "a", err: errors.New("nope")}
	r := NewImageResolver([]ImageGenerator{gen}, &fakeUploader{}, time.Second)

	if got := r.Resolve(context.Background(), "p"); got != "" {
		t.Fatalf("exhausted pool must return empty, got %q", got)
	}
}

func TestStockImageURLDeterministic(t *testing.T) {
	if StockImageURL("disaster") != StockImageURL("disaster") {
		t.Error("stock URL must be stable per category")
	}
	if StockImageURL("unknown-category") != StockImageURL("general") {
		t.Error("unknown categories fall back to the general asset")
	}
}

type fakeSynth struct {
	name  string
	data  []byte
	err   error
	calls int
}

func (f *fakeSynth) Name() string { return f.name }

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeAudioStore struct {
	urls    map[string]string
	lookups int
}

func (f *fakeAudioStore) AudioURL(ctx context.Context, recordID string) (string, error) {
	f.lookups++
	return f.urls[recordID], nil
}

func TestAudioResolveIdempotencySkipsSynthesis(t *testing.T) {
	synth := &fakeSynth{name: "t1", data: []byte{1}}
	store := &fakeAudioStore{urls: map[string]string{"rec-1": "https://assets/existing.mp3"}}
	r := NewAudioResolver(store, []Synthesizer{synth}, &fakeUploader{url: "x"}, time.Second)

	got := r.Resolve(context.Background(), "some text", "rec-1")
	if got != "https://assets/existing.mp3" {
		t.Fatalf("Resolve = %q, want existing asset", got)
	}
	if synth.calls != 0 {
		t.Errorf("existing asset must invoke zero synthesis tiers, got %d calls", synth.calls)
	}
}

func TestAudioResolveTierOrder(t *testing.T) {
	first := &fakeSynth{name: "t1", err: errors.New("unreachable")}
	second := &fakeSynth{name: "t2", data: []byte{9}}
	third := &fakeSynth{name: "t3", data: []byte{1}}
	up := &fakeUploader{url: "https://assets/a.mp3"}
	r := NewAudioResolver(&fakeAudioStore{}, []Synthesizer{first, second, third}, up, time.Second)

	if got := r.Resolve(context.Background(), "a reasonably long narration text", "rec-2"); got == "" {
		t.Fatal("second tier should have produced audio")
	}
	if second.calls != 1 || third.calls != 0 {
		t.Errorf("tier calls = (%d, %d, %d), want (1, 1, 0)", first.calls, second.calls, third.calls)
	}
}

func TestAudioResolveAllTiersFail(t *testing.T) {
	first := &fakeSynth{name: "t1", err: errors.New("a")}
	second := &fakeSynth{name: "t2", err: errors.New("b")}
	r := NewAudioResolver(&fakeAudioStore{}, []Synthesizer{first, second}, &fakeUploader{}, time.Second)

	if got := r.Resolve(context.Background(), "text", "rec-3"); got != "" {
		t.Fatalf("total exhaustion must return empty, got %q", got)
	}
}

func TestAudioResolveEmptyAfterSanitize(t *testing.T) {
	synth := &fakeSynth{name: "t1", data: []byte{1}}
	r := NewAudioResolver(&fakeAudioStore{}, []Synthesizer{synth}, &fakeUploader{url: "x"}, time.Second)

	if got := r.Resolve(context.Background(), "<br> https://only-a-link.example ", "rec-4"); got != "" {
		t.Fatalf("empty sanitized text must resolve empty, got %q", got)
	}
	if synth.calls != 0 {
		t.Errorf("no synthesis should run on empty text, got %d calls", synth.calls)
	}
}

func TestSanitizeForSpeech(t *testing.T) {
	in := `<p>Breaking&nbsp;news: flood hits city &amp; suburbs 🌊</p> read more at https://example.com/story  now`
	got := SanitizeForSpeech(in, 0)
	for _, banned := range []string{"<p>", "&nbsp;", "&amp;", "🌊", "https://"} {
		if strings.Contains(got, banned) {
			t.Errorf("sanitized text still contains %q: %q", banned, got)
		}
	}
	if !strings.Contains(got, "flood hits city & suburbs") {
		t.Errorf("entities should decode to text: %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

func TestSanitizeForSpeechCapsOnWordBoundary(t *testing.T) {
	got := SanitizeForSpeech("alpha beta gamma delta", 12)
	if got != "alpha beta" {
		t.Errorf("got %q, want %q", got, "alpha beta")
	}
}

func TestChunkTextPreservesOrder(t *testing.T) {
	chunks := ChunkText("one two three four five six", 10)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	joined := strings.Join(chunks, " ")
	if joined != "one two three four five six" {
		t.Errorf("chunk concatenation lost text: %q", joined)
	}
	for _, c := range chunks {
		if len([]rune(c)) > 10 {
			t.Errorf("chunk %q exceeds limit", c)
		}
	}
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("short", 50)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("got %v", chunks)
	}
}
