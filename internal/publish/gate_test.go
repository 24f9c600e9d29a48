package publish

import (
	"os"
	"path/filepath"
	"testing"

	"newspipe/internal/logger"
)

func init() { logger.Init() }

func TestStatusFor(t *testing.T) {
	if StatusFor(ModeAuto) != StatusPublished {
		t.Error("auto must persist as published")
	}
	if StatusFor(ModeManual) != StatusDraft {
		t.Error("manual must persist as draft")
	}
}

func TestShouldRun(t *testing.T) {
	if !ShouldRun(ModeAuto) || !ShouldRun(ModeManual) {
		t.Error("auto and manual both run")
	}
	if ShouldRun(ModeOff) {
		t.Error("off must not run")
	}
}

func TestFileSourceReadsFreshEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	write := func(body string) {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src := NewFileSource(path, Settings{Mode: ModeManual})

	write(`{"mode":"auto","enable_image_gen":true,"enable_audio_gen":true}`)
	if got := src.Current(); got.Mode != ModeAuto || !got.EnableImageGen {
		t.Fatalf("first read = %+v", got)
	}

	// Operator flips the file mid-run; the next read must see it.
	write(`{"mode":"off"}`)
	if got := src.Current(); got.Mode != ModeOff {
		t.Fatalf("second read = %+v, want mode off", got)
	}
}

func TestFileSourceMissingFileFallsBack(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.json"), Settings{Mode: ModeAuto})
	if got := src.Current(); got.Mode != ModeAuto {
		t.Errorf("got %+v, want fallback auto", got)
	}
}

func TestFileSourceUnknownModeFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"mode":"turbo","enable_image_gen":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(path, Settings{Mode: ModeManual})
	got := src.Current()
	if got.Mode != ModeManual {
		t.Errorf("mode = %q, want fallback manual", got.Mode)
	}
	if !got.EnableImageGen {
		t.Error("valid fields should survive an invalid mode")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" AUTO "); err != nil || m != ModeAuto {
		t.Errorf("ParseMode(AUTO) = %v, %v", m, err)
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
