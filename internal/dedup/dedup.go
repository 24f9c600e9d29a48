// Package dedup decides whether a candidate headline is a semantic repeat of
// a story accepted within a recency window. The in-memory view is
// authoritative for the running process; the fingerprint store only backs it
// across restarts.
package dedup

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"newspipe/internal/logger"
)

// Fingerprint is the normalized token-set representation of an accepted
// headline.
type Fingerprint struct {
	Key       string
	Words     []string
	Original  string
	BotID     string
	Timestamp time.Time
}

// Match is the outcome of a duplicate check.
type Match struct {
	Duplicate     bool
	Similarity    float64
	MatchedSource string
	MatchedText   string
}

// Store persists fingerprints across process restarts. All methods are
// best-effort from the deduper's point of view: errors are logged, never
// propagated to the candidate.
type Store interface {
	SaveFingerprint(ctx context.Context, fp Fingerprint) error
	RecentFingerprints(ctx context.Context, since time.Time) ([]Fingerprint, error)
	DeleteFingerprintsBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Options tune the similarity decision. The threshold and boost constants
// are empirically chosen; keep them configurable for calibration.
type Options struct {
	Threshold   float64
	BoostSingle float64
	BoostMulti  float64
	Window      time.Duration
	MaxAge      time.Duration
}

func defaultOptions() Options {
	return Options{
		Threshold:   0.40,
		BoostSingle: 0.10,
		BoostMulti:  0.20,
		Window:      6 * time.Hour,
		MaxAge:      24 * time.Hour,
	}
}

// coldStartEntries: below this many in-memory entries the deduper also
// consults the store before concluding "not a duplicate" (process restart).
const coldStartEntries = 10

// cleanupBatch bounds how many stored fingerprints a single cleanup pass
// deletes.
const cleanupBatch = 200

type entry struct {
	fp    Fingerprint
	words map[string]struct{}
}

// Deduper holds the in-memory fingerprint cache.
type Deduper struct {
	mu      sync.Mutex
	opts    Options
	store   Store // optional
	byKey   map[string]*entry
	entries []*entry
	now     func() time.Time
}

func New(store Store, opts Options) *Deduper {
	def := defaultOptions()
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = def.Threshold
	}
	if opts.BoostSingle <= 0 {
		opts.BoostSingle = def.BoostSingle
	}
	if opts.BoostMulti <= 0 {
		opts.BoostMulti = def.BoostMulti
	}
	if opts.Window <= 0 {
		opts.Window = def.Window
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = def.MaxAge
	}
	return &Deduper{
		opts:  opts,
		store: store,
		byKey: make(map[string]*entry),
		now:   time.Now,
	}
}

// Check reports whether text is a semantic duplicate of a recently accepted
// headline.
func (d *Deduper) Check(ctx context.Context, text, sourceID string) Match {
	words := Normalize(text)
	if len(words) == 0 {
		return Match{}
	}
	key := fingerprintKey(words)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cutoff := now.Add(-d.opts.Window)

	// Exact-match fast path on the sorted token key.
	if e, ok := d.byKey[key]; ok && e.fp.Timestamp.After(cutoff) {
		return Match{Duplicate: true, Similarity: 1.0, MatchedSource: e.fp.BotID, MatchedText: e.fp.Original}
	}

	if len(d.entries) < coldStartEntries && d.store != nil {
		d.hydrateLocked(ctx, cutoff)
		if e, ok := d.byKey[key]; ok && e.fp.Timestamp.After(cutoff) {
			return Match{Duplicate: true, Similarity: 1.0, MatchedSource: e.fp.BotID, MatchedText: e.fp.Original}
		}
	}

	candidate := wordSet(words)
	best := Match{}
	for _, e := range d.entries {
		if !e.fp.Timestamp.After(cutoff) {
			continue
		}
		sim := boostedSimilarity(candidate, e.words, d.opts.BoostSingle, d.opts.BoostMulti)
		if sim > best.Similarity {
			best = Match{Similarity: sim, MatchedSource: e.fp.BotID, MatchedText: e.fp.Original}
		}
	}

	if best.Similarity >= d.opts.Threshold {
		best.Duplicate = true
		logger.Info("duplicate topic detected",
			"similarity", best.Similarity,
			"matched_source", best.MatchedSource,
			"source", sourceID)
	}
	return best
}

// Accept records text as an accepted topic: memory first, store best-effort.
func (d *Deduper) Accept(ctx context.Context, text, sourceID string) {
	words := Normalize(text)
	if len(words) == 0 {
		return
	}
	fp := Fingerprint{
		Key:       fingerprintKey(words),
		Words:     words,
		Original:  text,
		BotID:     sourceID,
		Timestamp: d.now(),
	}

	d.mu.Lock()
	d.insertLocked(fp)
	d.mu.Unlock()

	if d.store == nil {
		return
	}
	if err := d.store.SaveFingerprint(ctx, fp); err != nil {
		logger.Warn("fingerprint store write failed", "error", err, "source", sourceID)
	}
}

// Cleanup drops fingerprints older than MaxAge from memory and, in bounded
// batches, from the store. Meant to run periodically.
func (d *Deduper) Cleanup(ctx context.Context) {
	cutoff := d.now().Add(-d.opts.MaxAge)

	d.mu.Lock()
	kept := d.entries[:0]
	for _, e := range d.entries {
		if e.fp.Timestamp.After(cutoff) {
			kept = append(kept, e)
		} else {
			delete(d.byKey, e.fp.Key)
		}
	}
	d.entries = kept
	d.mu.Unlock()

	if d.store == nil {
		return
	}
	for {
		n, err := d.store.DeleteFingerprintsBefore(ctx, cutoff, cleanupBatch)
		if err != nil {
			logger.Warn("fingerprint cleanup failed", "error", err)
			return
		}
		if n < cleanupBatch {
			return
		}
	}
}

// Size reports how many fingerprints are held in memory.
func (d *Deduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *Deduper) insertLocked(fp Fingerprint) {
	if e, ok := d.byKey[fp.Key]; ok {
		// Re-acceptance refreshes the entry so the window restarts.
		// Hydration can replay older store rows; keep the newest.
		if fp.Timestamp.After(e.fp.Timestamp) {
			e.fp = fp
		}
		return
	}
	e := &entry{fp: fp, words: wordSet(fp.Words)}
	d.byKey[fp.Key] = e
	d.entries = append(d.entries, e)
}

func (d *Deduper) hydrateLocked(ctx context.Context, since time.Time) {
	fps, err := d.store.RecentFingerprints(ctx, since)
	if err != nil {
		logger.Warn("fingerprint store scan failed", "error", err)
		return
	}
	for _, fp := range fps {
		if fp.Key == "" {
			fp.Key = fingerprintKey(fp.Words)
		}
		d.insertLocked(fp)
	}
}

// Normalize lowercases text, strips punctuation (keeping letters of any
// script and digits), drops stop-words and tokens of two runes or fewer,
// and returns the unique tokens sorted.
func Normalize(text string) []string {
	text = strings.ToLower(text)

	runes := make([]rune, 0, len(text))
	for _, r := range text {
		// IsMark keeps combining vowels/tone marks so Thai and similar
		// scripts are not split mid-word.
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
			runes = append(runes, r)
		} else {
			runes = append(runes, ' ')
		}
	}

	seen := make(map[string]struct{})
	for _, w := range strings.Fields(string(runes)) {
		if len([]rune(w)) <= 2 {
			continue
		}
		if stopWords[w] {
			continue
		}
		seen[w] = struct{}{}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

func fingerprintKey(sortedWords []string) string {
	return strings.Join(sortedWords, " ")
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B| for two token sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// boostedSimilarity adds the entity boost on top of raw Jaccard: two or more
// shared high-signal tokens add BoostMulti, exactly one adds BoostSingle.
// The result is capped at 1.0.
func boostedSimilarity(a, b map[string]struct{}, single, multi float64) float64 {
	sim := Jaccard(a, b)
	if sim == 0 {
		return 0
	}

	shared := 0
	for w := range a {
		if _, ok := b[w]; !ok {
			continue
		}
		if _, hot := entityVocabulary[w]; hot {
			shared++
			if shared >= 2 {
				break
			}
		}
	}
	switch {
	case shared >= 2:
		sim += multi
	case shared == 1:
		sim += single
	}
	if sim > 1.0 {
		sim = 1.0
	}
	return sim
}
