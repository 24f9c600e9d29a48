// Package app wires the pipeline stages together and runs the
// per-candidate flow: dedup check, generation, image resolution, gate
// check, persistence, fingerprint accept, audio resolution,
// notification.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"newspipe/internal/collect"
	"newspipe/internal/dedup"
	"newspipe/internal/generate"
	"newspipe/internal/logger"
	"newspipe/internal/media"
	"newspipe/internal/metrics"
	"newspipe/internal/notify"
	"newspipe/internal/publish"
	"newspipe/internal/storage"
)

const persistTimeout = 15 * time.Second

// CandidateSource produces this run's raw candidates.
type CandidateSource interface {
	Collect(ctx context.Context) []collect.Candidate
}

// Generator is the generation orchestrator contract.
type Generator interface {
	Generate(ctx context.Context, prompt string) *generate.Article
}

// ImageResolver yields a hosted image URL or "".
type ImageResolver interface {
	Resolve(ctx context.Context, prompt string) string
}

// AudioResolver yields a hosted audio URL or "".
type AudioResolver interface {
	Resolve(ctx context.Context, text, recordID string) string
}

// ArticleStore is the persistence contract the pipeline writes to.
type ArticleStore interface {
	InsertArticleIfAbsent(ctx context.Context, rec storage.ArticleRecord) (bool, error)
	SetAudioURL(ctx context.Context, articleID, url string) error
}

// Pipeline composes the stages. Every external stage failure degrades to
// skipping the candidate; a run never aborts mid-flight except on context
// cancellation or the gate switching off.
type Pipeline struct {
	source    CandidateSource
	deduper   *dedup.Deduper
	generator Generator
	images    ImageResolver
	audio     AudioResolver
	settings  publish.Source
	store     ArticleStore
	notifier  notify.Notifier
	maxItems  int
	cooldown  time.Duration
	sleep     func(time.Duration)
	newID     func() string
}

// Deps carries the pipeline's collaborators. Store and settings are
// required; media resolvers and the notifier may be nil.
type Deps struct {
	Source    CandidateSource
	Deduper   *dedup.Deduper
	Generator Generator
	Images    ImageResolver
	Audio     AudioResolver
	Settings  publish.Source
	Store     ArticleStore
	Notifier  notify.Notifier
	MaxItems  int
	Cooldown  time.Duration
}

func New(d Deps) *Pipeline {
	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Pipeline{
		source:    d.Source,
		deduper:   d.Deduper,
		generator: d.Generator,
		images:    d.Images,
		audio:     d.Audio,
		settings:  d.Settings,
		store:     d.Store,
		notifier:  notifier,
		maxItems:  d.MaxItems,
		cooldown:  d.Cooldown,
		sleep:     time.Sleep,
		newID:     uuid.NewString,
	}
}

// Run executes one pipeline cycle. The publish mode is read at run start
// and again immediately before every persistence write, so flipping it to
// off mid-run halts before the next write.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.Global.RecordRunDuration(time.Since(start))
		metrics.Global.SetLastRun()
	}()

	if mode := p.settings.Current().Mode; !publish.ShouldRun(mode) {
		logger.Info("publishing is off, skipping run")
		return nil
	}

	candidates := p.source.Collect(ctx)
	if p.maxItems > 0 && len(candidates) > p.maxItems {
		candidates = candidates[:p.maxItems]
	}
	logger.Info("run started", "candidates", len(candidates))

	persisted := 0
	for _, cand := range candidates {
		if ctx.Err() != nil {
			logger.Warn("run cancelled", "persisted", persisted)
			return ctx.Err()
		}

		if done := p.processCandidate(ctx, cand, &persisted); done {
			break
		}
	}

	p.deduper.Cleanup(ctx)
	logger.Info("run finished", "persisted", persisted, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// processCandidate handles one candidate end to end. It returns true when
// the run must stop (gate switched off).
func (p *Pipeline) processCandidate(ctx context.Context, cand collect.Candidate, persisted *int) (stop bool) {
	match := p.deduper.Check(ctx, cand.Headline, cand.SourceName)
	if match.Duplicate {
		metrics.Global.IncDuplicatesRejected()
		logger.Info("duplicate topic rejected",
			"headline", cand.Headline, "similarity", match.Similarity, "matched_source", match.MatchedSource)
		return false
	}

	prompt := generate.BuildPrompt(cand.Headline, cand.Body, cand.SourceURL)
	art := p.generator.Generate(ctx, prompt)
	if art == nil {
		metrics.Global.IncGenerationFailures()
		logger.Warn("generation exhausted, skipping candidate", "headline", cand.Headline)
		return false
	}
	metrics.Global.IncArticlesGenerated()

	// Media settings are read fresh here, not cached from run start.
	settings := p.settings.Current()
	if settings.Mode == publish.ModeOff {
		logger.Warn("publishing switched off mid-run, halting before media stage")
		return true
	}

	id := p.newID()
	imageURL := p.resolveImage(ctx, settings, art)

	// Final gate check, immediately before the write.
	settings = p.settings.Current()
	if settings.Mode == publish.ModeOff {
		logger.Warn("publishing switched off mid-run, halting before persistence")
		return true
	}
	status := publish.StatusFor(settings.Mode)

	writeCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	rec := storage.ArticleRecord{
		ID:                 id,
		SourceURL:          cand.SourceURL,
		NormalizedHeadline: strings.Join(dedup.Normalize(art.Headline), " "),
		Headline:           art.Headline,
		Content:            art.Content,
		Tags:               art.Tags,
		Category:           art.Category,
		ImageURL:           imageURL,
		Status:             status,
		BotID:              cand.BotID,
		PublishedAt:        time.Now().UTC(),
	}
	inserted, err := p.store.InsertArticleIfAbsent(writeCtx, rec)
	if err != nil {
		logger.Error("persistence failed, skipping candidate", "headline", art.Headline, "error", err)
		return false
	}
	if !inserted {
		// A concurrent run already wrote this story; the conflict is a
		// no-op by contract.
		logger.Info("article already persisted elsewhere", "source_url", cand.SourceURL)
		return false
	}

	p.deduper.Accept(ctx, cand.Headline, cand.SourceName)

	// Audio runs against the persisted row so the resolver's store lookup
	// can short-circuit when the record already carries an asset.
	if audioURL := p.resolveAudio(ctx, settings, art, id); audioURL != "" {
		if err := p.store.SetAudioURL(ctx, id, audioURL); err != nil {
			logger.Warn("audio URL persist failed", "id", id, "error", err)
		}
	}

	if status == publish.StatusPublished {
		metrics.Global.IncArticlesPublished()
		if err := p.notifier.Notify(ctx, notify.Notification{
			Headline: art.Headline,
			ID:       id,
			ImageURL: imageURL,
			Category: art.Category,
		}); err != nil {
			logger.Warn("notification failed", "id", id, "error", err)
		}
	} else {
		metrics.Global.IncArticlesDrafted()
	}

	*persisted++
	if p.cooldown > 0 {
		p.sleep(p.cooldown)
	}
	return false
}

func (p *Pipeline) resolveImage(ctx context.Context, settings publish.Settings, art *generate.Article) string {
	if settings.EnableImageGen && p.images != nil {
		prompt := art.ImageKeyword
		if prompt == "" {
			prompt = art.Headline
		}
		if url := p.images.Resolve(ctx, prompt); url != "" {
			return url
		}
	}
	return media.StockImageURL(art.Category)
}

func (p *Pipeline) resolveAudio(ctx context.Context, settings publish.Settings, art *generate.Article, id string) string {
	if !settings.EnableAudioGen || p.audio == nil {
		return ""
	}
	return p.audio.Resolve(ctx, art.Headline+". "+art.Content, id)
}
