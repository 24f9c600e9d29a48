package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"newspipe/internal/ratelimit"
)

func TestStateFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	sf := NewStateFile(path)

	st := ratelimit.State{
		Limited:      true,
		LimitedSince: time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC),
		ResetAt:      time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Failures:     2,
	}
	if err := sf.SaveState("model-x", st); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if err := sf.SaveState("model-y", ratelimit.State{}); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded, err := sf.LoadStates()
	if err != nil {
		t.Fatalf("LoadStates: %v", err)
	}
	got, ok := loaded["model-x"]
	if !ok {
		t.Fatal("model-x state missing after reload")
	}
	if !got.Limited || got.Failures != 2 || !got.ResetAt.Equal(st.ResetAt) {
		t.Errorf("reloaded state mismatch: %+v", got)
	}
	if len(loaded) != 2 {
		t.Errorf("expected 2 providers, got %d", len(loaded))
	}
}

func TestStateFileMissingIsEmpty(t *testing.T) {
	sf := NewStateFile(filepath.Join(t.TempDir(), "absent.json"))
	states, err := sf.LoadStates()
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("expected empty map, got %v", states)
	}
}

func TestStateFileCorruptReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	sf := NewStateFile(path)
	if _, err := sf.LoadStates(); err == nil {
		t.Error("corrupt file must surface an error so the tracker resets")
	}
}
