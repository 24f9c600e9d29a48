// Package publish holds the operator-controlled gate deciding whether and
// how accepted articles persist.
package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"newspipe/internal/logger"
)

// Mode is the tri-state publication switch.
type Mode string

const (
	// ModeAuto persists accepted articles with status published.
	ModeAuto Mode = "auto"
	// ModeManual persists accepted articles as drafts for human review.
	ModeManual Mode = "manual"
	// ModeOff stops the pipeline before the next persistence write.
	ModeOff Mode = "off"
)

// Settings is the operator policy, read fresh at every decision point so
// a mid-run change takes effect before the next write.
type Settings struct {
	Mode           Mode `json:"mode"`
	EnableImageGen bool `json:"enable_image_gen"`
	EnableAudioGen bool `json:"enable_audio_gen"`
}

// Source yields current settings. Implementations must not cache across
// calls.
type Source interface {
	Current() Settings
}

// Status values written to the article store.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
)

// StatusFor maps the gate mode to a persistence status. ModeOff has no
// status; callers must check ShouldRun before persisting.
func StatusFor(mode Mode) string {
	if mode == ModeAuto {
		return StatusPublished
	}
	return StatusDraft
}

// ShouldRun reports whether the pipeline may proceed under mode.
func ShouldRun(mode Mode) bool {
	return mode == ModeAuto || mode == ModeManual
}

// FileSource reads settings from a JSON file on every call, so operators
// can flip the mode by editing the file while a run is in flight. A
// missing or unreadable file degrades to the fallback settings.
type FileSource struct {
	path     string
	fallback Settings
}

func NewFileSource(path string, fallback Settings) *FileSource {
	if fallback.Mode == "" {
		fallback.Mode = ModeManual
	}
	return &FileSource{path: path, fallback: fallback}
}

func (f *FileSource) Current() Settings {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("settings file unreadable, using fallback", "path", f.path, "error", err)
		}
		return f.fallback
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		logger.Warn("settings file malformed, using fallback", "path", f.path, "error", err)
		return f.fallback
	}

	s.Mode = Mode(strings.ToLower(strings.TrimSpace(string(s.Mode))))
	switch s.Mode {
	case ModeAuto, ModeManual, ModeOff:
	default:
		logger.Warn("settings file has unknown mode, using fallback", "mode", s.Mode)
		s.Mode = f.fallback.Mode
	}
	return s
}

// StaticSource returns fixed settings, for deployments without a settings
// file and for tests.
type StaticSource struct {
	Settings Settings
}

func (s StaticSource) Current() Settings { return s.Settings }

// ParseMode validates an operator-supplied mode string.
func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case ModeAuto, ModeManual, ModeOff:
		return m, nil
	}
	return "", fmt.Errorf("unknown publish mode %q", raw)
}
