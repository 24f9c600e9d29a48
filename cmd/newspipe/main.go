package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"newspipe/internal/app"
	"newspipe/internal/collect"
	"newspipe/internal/config"
	"newspipe/internal/dedup"
	"newspipe/internal/generate"
	"newspipe/internal/logger"
	"newspipe/internal/media"
	"newspipe/internal/metrics"
	"newspipe/internal/notify"
	"newspipe/internal/publish"
	"newspipe/internal/ratelimit"
	"newspipe/internal/retry"
	"newspipe/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		log.Fatalf("wiring: %v", err)
	}
	defer cleanup()

	if cfg.RunOnce {
		if err := pipeline.Run(ctx); err != nil {
			logger.Error("run failed", "error", err)
			metrics.Global.SetError(err.Error())
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(cfg.RunInterval)
	defer ticker.Stop()

	logger.Info("scheduler started", "interval", cfg.RunInterval)
	for {
		if err := pipeline.Run(ctx); err != nil {
			logger.Error("run failed", "error", err)
			metrics.Global.SetError(err.Error())
		}
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
		}
	}
}

// articleStore is what the pipeline and the audio resolver both need
// from persistence.
type articleStore interface {
	app.ArticleStore
	media.AudioStore
}

// buildPipeline wires the concrete stages from configuration. Postgres
// backs articles, fingerprints and rate-limit state when DATABASE_URL is
// set; without it, articles and provider state live in local JSON files
// and fingerprints stay in memory.
func buildPipeline(ctx context.Context, cfg *config.Config) (*app.Pipeline, func(), error) {
	var (
		store      articleStore
		stateStore ratelimit.StateStore
		fpStore    dedup.Store
		cleanup    = func() {}
	)
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, stateStore, fpStore = pg, pg, pg
		cleanup = func() { _ = pg.Close() }
	} else {
		af, err := storage.NewArticleFile(cfg.ArticleStorePath)
		if err != nil {
			return nil, nil, err
		}
		store = af
		stateStore = storage.NewStateFile(cfg.ProviderStatePath)
		logger.Warn("no DATABASE_URL, using local JSON stores", "articles", cfg.ArticleStorePath)
	}
	tracker := ratelimit.NewTracker(stateStore)

	deduper := dedup.New(fpStore, dedup.Options{
		Threshold:   cfg.DedupThreshold,
		BoostSingle: cfg.EntityBoostSingle,
		BoostMulti:  cfg.EntityBoostMulti,
		Window:      cfg.DedupWindow,
		MaxAge:      cfg.DedupMaxAge,
	})

	chain, err := buildProviderChain(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	retryCfg := retry.Config{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}
	orchestrator := generate.NewOrchestrator(chain, tracker, cfg.GenerateTimeout, retryCfg)

	uploader := media.NewHTTPUploader(cfg.AssetUploadURL, cfg.AssetUploadKey, cfg.RequestTimeout)
	images := media.NewImageResolver(
		media.NewImagePool(cfg.ImageAPIKeys, cfg.OpenAIBaseURL, cfg.ImageModel),
		uploader, cfg.MediaTimeout)

	tiers := []media.Synthesizer{media.NewGoogleTTS(cfg.AudioLang, cfg.RequestTimeout)}
	tiers = append(tiers, media.NewSpeechPool(cfg.AudioAPIKeys, cfg.OpenAIBaseURL, cfg.AudioVoice)...)
	if cfg.CommodityTTSURL != "" {
		tiers = append(tiers, media.NewCommodityTTS(cfg.CommodityTTSURL, cfg.CommodityTTSKey, cfg.AudioLang, cfg.RequestTimeout))
	}
	audio := media.NewAudioResolver(store, tiers, uploader, cfg.MediaTimeout)

	sources, err := collect.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	collector := collect.NewCollector(collect.NewScraper(cfg.RequestTimeout), cfg.CandidateMaxAge, cfg.ScrapeConcurrency)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, retryCfg)
	}

	pipeline := app.New(app.Deps{
		Source:    &feedSource{collector: collector, sources: sources},
		Deduper:   deduper,
		Generator: orchestrator,
		Images:    images,
		Audio:     audio,
		Settings:  publish.NewFileSource(cfg.SettingsPath, publish.Settings{Mode: publish.ModeManual}),
		Store:     store,
		Notifier:  notifier,
		MaxItems:  cfg.MaxItemsPerRun,
		Cooldown:  cfg.ItemCooldown,
	})
	return pipeline, cleanup, nil
}

// buildProviderChain puts Gemini models first in configured priority
// order, with the OpenAI model as the terminal fallback.
func buildProviderChain(ctx context.Context, cfg *config.Config) ([]generate.Provider, error) {
	var chain []generate.Provider

	if cfg.GeminiAPIKey != "" {
		client, err := generate.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		chain = append(chain, generate.NewGeminiProviders(client, cfg.GeminiModels)...)
	}
	if cfg.OpenAIAPIKey != "" {
		chain = append(chain, generate.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
	}
	return chain, nil
}

// feedSource adapts the collector to the pipeline's candidate source.
type feedSource struct {
	collector *collect.Collector
	sources   []collect.Source
}

func (f *feedSource) Collect(ctx context.Context) []collect.Candidate {
	candidates := f.collector.Collect(ctx, f.sources)
	return f.collector.Enrich(ctx, candidates)
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	logger.Info("monitoring server listening", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server stopped", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
