package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"newspipe/internal/logger"
	"newspipe/internal/metrics"
)

// Synthesizer is one ordered speech tier. A tier gets the full sanitized
// text and handles its own chunking limits internally.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioStore answers the idempotency check.
type AudioStore interface {
	AudioURL(ctx context.Context, recordID string) (string, error)
}

const speechMaxRunes = 3500

// AudioResolver walks the synthesis tiers in order after an idempotency
// check against the store.
type AudioResolver struct {
	store    AudioStore
	tiers    []Synthesizer
	uploader Uploader
	timeout  time.Duration
}

func NewAudioResolver(store AudioStore, tiers []Synthesizer, uploader Uploader, timeout time.Duration) *AudioResolver {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &AudioResolver{store: store, tiers: tiers, uploader: uploader, timeout: timeout}
}

// Resolve returns a hosted audio URL for the record, or "" when every
// tier fails. An existing asset for recordID short-circuits before any
// synthesis call.
func (r *AudioResolver) Resolve(ctx context.Context, text, recordID string) string {
	if r.store != nil {
		existing, err := r.store.AudioURL(ctx, recordID)
		if err != nil {
			logger.Warn("audio idempotency lookup failed", "record", recordID, "error", err)
		} else if existing != "" {
			logger.Debug("audio already resolved", "record", recordID)
			return existing
		}
	}

	clean := SanitizeForSpeech(text, speechMaxRunes)
	if clean == "" {
		return ""
	}

	for i, tier := range r.tiers {
		if i > 0 {
			metrics.Global.IncAudioFallbacks()
		}

		tierCtx, cancel := context.WithTimeout(ctx, r.timeout)
		data, err := tier.Synthesize(tierCtx, clean)
		cancel()
		if err != nil {
			logger.Warn("speech tier failed", "tier", tier.Name(), "error", err)
			continue
		}
		if len(data) == 0 {
			logger.Warn("speech tier returned no audio", "tier", tier.Name())
			continue
		}

		uploadCtx, cancel := context.WithTimeout(ctx, r.timeout)
		hosted, err := r.uploader.Upload(uploadCtx, fmt.Sprintf("audio-%s.mp3", recordID), "audio/mpeg", data)
		cancel()
		if err != nil {
			logger.Warn("audio upload failed", "tier", tier.Name(), "error", err)
			continue
		}

		logger.Info("audio resolved", "record", recordID, "tier", tier.Name())
		return hosted
	}

	logger.Warn("speech tiers exhausted, article persists without audio", "record", recordID)
	return ""
}

// GoogleTTS is the free translate text-to-speech endpoint. It only accepts
// short inputs, so the text is chunked and the MP3 segments concatenated
// in order. MP3 frames are self-contained, so plain byte concatenation
// plays correctly.
type GoogleTTS struct {
	lang   string
	client *http.Client
}

const googleTTSChunkRunes = 180

func NewGoogleTTS(lang string, timeout time.Duration) *GoogleTTS {
	if lang == "" {
		lang = "en"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleTTS{lang: lang, client: &http.Client{Timeout: timeout}}
}

func (g *GoogleTTS) Name() string { return "google-tts" }

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var out bytes.Buffer
	for _, chunk := range ChunkText(text, googleTTSChunkRunes) {
		params := url.Values{}
		params.Set("ie", "UTF-8")
		params.Set("client", "tw-ob")
		params.Set("tl", g.lang)
		params.Set("q", chunk)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			"https://translate.google.com/translate_tts?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tts request: %w", err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("tts request: HTTP %d", resp.StatusCode)
		}
		out.Write(data)
	}
	return out.Bytes(), nil
}

// OpenAISpeech wraps one speech-API credential.
type OpenAISpeech struct {
	client *openai.Client
	voice  openai.SpeechVoice
	name   string
}

// NewSpeechPool builds one tier entry per API key. The pool is flattened
// into the resolver's tier list so the first working credential wins.
func NewSpeechPool(apiKeys []string, baseURL, voice string) []Synthesizer {
	v := openai.SpeechVoice(voice)
	if v == "" {
		v = openai.VoiceAlloy
	}
	pool := make([]Synthesizer, 0, len(apiKeys))
	for i, key := range apiKeys {
		if key == "" {
			continue
		}
		cfg := openai.DefaultConfig(key)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		pool = append(pool, &OpenAISpeech{
			client: openai.NewClientWithConfig(cfg),
			voice:  v,
			name:   fmt.Sprintf("openai-speech-%d", i+1),
		})
	}
	return pool
}

func (s *OpenAISpeech) Name() string { return s.name }

func (s *OpenAISpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: s.voice,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

// CommodityTTS is the last-resort HTTP synthesis vendor.
type CommodityTTS struct {
	endpoint string
	apiKey   string
	lang     string
	client   *http.Client
}

func NewCommodityTTS(endpoint, apiKey, lang string, timeout time.Duration) *CommodityTTS {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CommodityTTS{endpoint: endpoint, apiKey: apiKey, lang: lang, client: &http.Client{Timeout: timeout}}
}

func (c *CommodityTTS) Name() string { return "commodity-tts" }

func (c *CommodityTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("lang", c.lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts request: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
