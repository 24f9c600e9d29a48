package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"newspipe/internal/ratelimit"
)

// StateFile persists provider rate-limit state in a JSON file for
// deployments without a database. Reads-your-writes within the process; no
// cross-process locking.
type StateFile struct {
	path string
	mu   sync.Mutex
}

func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// LoadStates reads the whole state map. A missing file is an empty map; a
// corrupt file is an error so the tracker can reinitialize clean.
func (sf *StateFile) LoadStates() (map[string]ratelimit.State, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	data, err := os.ReadFile(sf.path)
	if os.IsNotExist(err) {
		return map[string]ratelimit.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(data) == 0 {
		return map[string]ratelimit.State{}, nil
	}

	var states map[string]ratelimit.State
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	return states, nil
}

// SaveState merges one provider state into the file.
func (sf *StateFile) SaveState(providerID string, st ratelimit.State) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	states := map[string]ratelimit.State{}
	if data, err := os.ReadFile(sf.path); err == nil && len(data) > 0 {
		// Ignore decode errors here: a corrupt file gets rewritten whole.
		_ = json.Unmarshal(data, &states)
	}
	states[providerID] = st

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.WriteFile(sf.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
