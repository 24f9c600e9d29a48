package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Persistence
	DatabaseURL       string
	ArticleStorePath  string // JSON article store when no database is configured
	ProviderStatePath string // JSON fallback when no database is configured
	SettingsPath      string // publish-mode settings file, re-read before every write

	// Generation providers
	GeminiAPIKey  string
	GeminiModels  []string // priority order within the Gemini vendor
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Media
	ImageAPIKeys    []string // credential pool, tried in order
	ImageModel      string
	AssetUploadURL  string
	AssetUploadKey  string
	AudioAPIKeys    []string
	AudioVoice      string
	AudioLang       string
	CommodityTTSURL string
	CommodityTTSKey string

	// Sources
	SourcesConfigPath string
	CandidateMaxAge   time.Duration
	ScrapeConcurrency int
	MaxItemsPerRun    int

	// Deduplication
	DedupThreshold    float64
	EntityBoostSingle float64
	EntityBoostMulti  float64
	DedupWindow       time.Duration
	DedupMaxAge       time.Duration

	// Notifications
	TelegramToken  string
	TelegramChatID string

	// Runtime
	RequestTimeout  time.Duration
	GenerateTimeout time.Duration
	MediaTimeout    time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	ItemCooldown    time.Duration
	RunInterval     time.Duration
	RunOnce         bool
	Debug           bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		ArticleStorePath:  "articles.json",
		ProviderStatePath: "provider_state.json",
		SettingsPath:      "publish_settings.json",
		GeminiModels:      []string{"gemini-1.5-flash", "gemini-1.5-flash-8b"},
		OpenAIModel:       "gpt-4o-mini",
		ImageModel:        "dall-e-3",
		AudioVoice:        "alloy",
		AudioLang:         "en",
		SourcesConfigPath: "configs/sources.yaml",
		CandidateMaxAge:   24 * time.Hour,
		ScrapeConcurrency: 8,
		MaxItemsPerRun:    10,
		DedupThreshold:    0.40,
		EntityBoostSingle: 0.10,
		EntityBoostMulti:  0.20,
		DedupWindow:       6 * time.Hour,
		DedupMaxAge:       24 * time.Hour,
		RequestTimeout:    30 * time.Second,
		GenerateTimeout:   60 * time.Second,
		MediaTimeout:      45 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        2 * time.Second,
		ItemCooldown:      5 * time.Second,
		RunInterval:       30 * time.Minute,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cfg.ArticleStorePath = getEnvOrDefault("ARTICLE_STORE_PATH", cfg.ArticleStorePath)
	cfg.ProviderStatePath = getEnvOrDefault("PROVIDER_STATE_PATH", cfg.ProviderStatePath)
	cfg.SettingsPath = getEnvOrDefault("PUBLISH_SETTINGS_PATH", cfg.SettingsPath)
	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.ImageModel = getEnvOrDefault("IMAGE_MODEL", cfg.ImageModel)
	cfg.AssetUploadURL = os.Getenv("ASSET_UPLOAD_URL")
	cfg.AssetUploadKey = os.Getenv("ASSET_UPLOAD_KEY")
	cfg.AudioVoice = getEnvOrDefault("AUDIO_VOICE", cfg.AudioVoice)
	cfg.AudioLang = getEnvOrDefault("AUDIO_LANG", cfg.AudioLang)
	cfg.CommodityTTSURL = os.Getenv("COMMODITY_TTS_URL")
	cfg.CommodityTTSKey = os.Getenv("COMMODITY_TTS_KEY")

	if v := os.Getenv("GEMINI_MODELS"); v != "" {
		cfg.GeminiModels = splitList(v)
	}
	if v := os.Getenv("IMAGE_API_KEYS"); v != "" {
		cfg.ImageAPIKeys = splitList(v)
	} else if cfg.OpenAIAPIKey != "" {
		cfg.ImageAPIKeys = []string{cfg.OpenAIAPIKey}
	}
	if v := os.Getenv("AUDIO_API_KEYS"); v != "" {
		cfg.AudioAPIKeys = splitList(v)
	} else if cfg.OpenAIAPIKey != "" {
		cfg.AudioAPIKeys = []string{cfg.OpenAIAPIKey}
	}

	cfg.ScrapeConcurrency = getEnvIntOrDefault("SCRAPE_CONCURRENCY", cfg.ScrapeConcurrency)
	cfg.MaxItemsPerRun = getEnvIntOrDefault("MAX_ITEMS_PER_RUN", cfg.MaxItemsPerRun)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if v := os.Getenv("DEDUP_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.DedupThreshold = f
		}
	}
	cfg.DedupWindow = getEnvHoursOrDefault("DEDUP_WINDOW_HOURS", cfg.DedupWindow)
	cfg.DedupMaxAge = getEnvHoursOrDefault("DEDUP_MAX_AGE_HOURS", cfg.DedupMaxAge)
	cfg.CandidateMaxAge = getEnvHoursOrDefault("CANDIDATE_MAX_AGE_HOURS", cfg.CandidateMaxAge)

	if v := os.Getenv("ITEM_COOLDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ItemCooldown = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("RUN_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RunInterval = time.Duration(n) * time.Minute
		}
	}
	if os.Getenv("RUN_ONCE") == "true" {
		cfg.RunOnce = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("at least one of GEMINI_API_KEY or OPENAI_API_KEY is required")
	}
	if len(c.GeminiModels) == 0 && c.GeminiAPIKey != "" {
		return fmt.Errorf("GEMINI_MODELS must not be empty when GEMINI_API_KEY is set")
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("dedup threshold must be in (0, 1], got %v", c.DedupThreshold)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvHoursOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Hour
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
