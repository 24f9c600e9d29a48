// Package ratelimit tracks per-provider cooldown state for generation
// providers. A provider marked limited stays out of rotation until the next
// UTC midnight; expiry is lazy, checked on read.
package ratelimit

import (
	"sync"
	"time"

	"newspipe/internal/logger"
)

// State is the durable cooldown record for one provider/model.
type State struct {
	Limited      bool      `json:"limited"`
	LimitedSince time.Time `json:"limited_since"`
	ResetAt      time.Time `json:"reset_at"`
	Failures     int       `json:"failures"`
}

// StateStore persists provider states across restarts. Missing or corrupt
// state reinitializes to "not limited".
type StateStore interface {
	LoadStates() (map[string]State, error)
	SaveState(providerID string, st State) error
}

// Tracker keeps the in-memory view of provider cooldowns, persisting every
// mutation through the store.
type Tracker struct {
	mu     sync.Mutex
	states map[string]State
	store  StateStore // optional
	now    func() time.Time
}

func NewTracker(store StateStore) *Tracker {
	t := &Tracker{
		states: make(map[string]State),
		store:  store,
		now:    time.Now,
	}
	if store != nil {
		loaded, err := store.LoadStates()
		if err != nil {
			logger.Warn("provider state reload failed, starting clean", "error", err)
		} else if loaded != nil {
			t.states = loaded
		}
	}
	return t
}

// MarkLimited records a quota failure for providerID. The cooldown runs
// until the next UTC midnight.
func (t *Tracker) MarkLimited(providerID string) {
	t.mu.Lock()
	now := t.now()
	st := t.states[providerID]
	st.Limited = true
	st.LimitedSince = now
	st.ResetAt = nextUTCMidnight(now)
	st.Failures++
	t.states[providerID] = st
	t.mu.Unlock()

	logger.Warn("provider rate limited",
		"provider", providerID,
		"reset_at", st.ResetAt.Format(time.RFC3339),
		"failures", st.Failures)
	t.persist(providerID, st)
}

// IsLimited reports whether providerID is cooling down. A state whose
// ResetAt has passed is cleared in place and persisted.
func (t *Tracker) IsLimited(providerID string) bool {
	t.mu.Lock()
	st, ok := t.states[providerID]
	if !ok || !st.Limited {
		t.mu.Unlock()
		return false
	}
	if !t.now().Before(st.ResetAt) {
		st = State{}
		t.states[providerID] = st
		t.mu.Unlock()
		logger.Info("provider limit expired", "provider", providerID)
		t.persist(providerID, st)
		return false
	}
	t.mu.Unlock()
	return true
}

// PreferredProvider returns the first non-limited entry of priority. When
// every entry is limited it returns the first one anyway; escalating to a
// different vendor is the orchestrator's job, not ours.
func (t *Tracker) PreferredProvider(priority []string) string {
	if len(priority) == 0 {
		return ""
	}
	for _, id := range priority {
		if !t.IsLimited(id) {
			return id
		}
	}
	return priority[0]
}

func (t *Tracker) persist(providerID string, st State) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveState(providerID, st); err != nil {
		logger.Warn("provider state write failed", "provider", providerID, "error", err)
	}
}

func nextUTCMidnight(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}
