package metrics

import (
	"sync"
	"time"
)

// Metrics collects pipeline counters for operator visibility. Served by the
// optional monitoring endpoint in cmd/newspipe.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	CandidatesSeen        int64
	DuplicatesRejected    int64
	ArticlesGenerated     int64
	GenerationFailures    int64
	ProviderFallbacks     int64
	ProvidersMarkedLimit  int64
	ImageFallbacks        int64
	AudioFallbacks        int64
	ArticlesPublished     int64
	ArticlesDrafted       int64
	CategoryDisagreements int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddCandidatesSeen(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesSeen += int64(n)
}

func (m *Metrics) IncDuplicatesRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesRejected++
}

func (m *Metrics) IncArticlesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesGenerated++
}

func (m *Metrics) IncGenerationFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationFailures++
}

func (m *Metrics) IncProviderFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProviderFallbacks++
}

func (m *Metrics) IncProvidersMarkedLimited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProvidersMarkedLimit++
}

func (m *Metrics) IncImageFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ImageFallbacks++
}

func (m *Metrics) IncAudioFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AudioFallbacks++
}

func (m *Metrics) IncArticlesPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesPublished++
}

func (m *Metrics) IncArticlesDrafted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesDrafted++
}

func (m *Metrics) IncCategoryDisagreements() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CategoryDisagreements++
}

func (m *Metrics) RecordRunDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = d
	m.TotalRunDuration += d
	m.RunCount++
	m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"candidates_seen":         m.CandidatesSeen,
		"duplicates_rejected":     m.DuplicatesRejected,
		"articles_generated":      m.ArticlesGenerated,
		"generation_failures":     m.GenerationFailures,
		"provider_fallbacks":      m.ProviderFallbacks,
		"providers_marked_limit":  m.ProvidersMarkedLimit,
		"image_fallbacks":         m.ImageFallbacks,
		"audio_fallbacks":         m.AudioFallbacks,
		"articles_published":      m.ArticlesPublished,
		"articles_drafted":        m.ArticlesDrafted,
		"category_disagreements":  m.CategoryDisagreements,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
