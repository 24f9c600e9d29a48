// Package media resolves optional image and audio assets for generated
// articles. Both resolvers walk an ordered list of attempts and treat
// total exhaustion as a valid empty result, never a pipeline error.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"newspipe/internal/logger"
	"newspipe/internal/metrics"
)

// ImageGenerator produces raw image bytes for a prompt. One generator per
// credential in the pool.
type ImageGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Uploader pushes an asset to the external host and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, contentType string, data []byte) (string, error)
}

// OpenAIImageGenerator wraps one image-API credential.
type OpenAIImageGenerator struct {
	client *openai.Client
	model  string
	name   string
}

// NewImagePool builds one generator per API key, preserving key order.
func NewImagePool(apiKeys []string, baseURL, model string) []ImageGenerator {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	pool := make([]ImageGenerator, 0, len(apiKeys))
	for i, key := range apiKeys {
		if key == "" {
			continue
		}
		cfg := openai.DefaultConfig(key)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		pool = append(pool, &OpenAIImageGenerator{
			client: openai.NewClientWithConfig(cfg),
			model:  model,
			name:   fmt.Sprintf("image-key-%d", i+1),
		})
	}
	return pool
}

func (g *OpenAIImageGenerator) Name() string { return g.name }

func (g *OpenAIImageGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("image response carries no data")
	}
	return base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
}

// ImageResolver tries each credential in order and uploads the first
// successful result.
type ImageResolver struct {
	pool     []ImageGenerator
	uploader Uploader
	timeout  time.Duration
}

func NewImageResolver(pool []ImageGenerator, uploader Uploader, timeout time.Duration) *ImageResolver {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &ImageResolver{pool: pool, uploader: uploader, timeout: timeout}
}

// Resolve returns the hosted URL of a generated image, or "" when the
// whole pool is exhausted. An upload failure counts the same as a
// generation failure for that credential.
func (r *ImageResolver) Resolve(ctx context.Context, prompt string) string {
	for i, gen := range r.pool {
		if i > 0 {
			metrics.Global.IncImageFallbacks()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		data, err := gen.Generate(attemptCtx, prompt)
		cancel()
		if err != nil {
			logger.Warn("image generation failed", "credential", gen.Name(), "error", err)
			continue
		}
		if len(data) == 0 {
			logger.Warn("image generation returned empty result", "credential", gen.Name())
			continue
		}

		uploadCtx, cancel := context.WithTimeout(ctx, r.timeout)
		url, err := r.uploader.Upload(uploadCtx, fmt.Sprintf("img-%d.png", time.Now().UnixNano()), "image/png", data)
		cancel()
		if err != nil {
			logger.Warn("image upload failed", "credential", gen.Name(), "error", err)
			continue
		}

		logger.Info("image resolved", "credential", gen.Name())
		return url
	}

	logger.Warn("image pool exhausted, caller falls back to stock asset")
	return ""
}

// stockImages maps each category to a stable default asset. Callers
// substitute these when Resolve returns "".
var stockImages = map[string]string{
	"politics":      "https://assets.newspipe.example/stock/politics.jpg",
	"economy":       "https://assets.newspipe.example/stock/economy.jpg",
	"disaster":      "https://assets.newspipe.example/stock/disaster.jpg",
	"crime":         "https://assets.newspipe.example/stock/crime.jpg",
	"technology":    "https://assets.newspipe.example/stock/technology.jpg",
	"health":        "https://assets.newspipe.example/stock/health.jpg",
	"sports":        "https://assets.newspipe.example/stock/sports.jpg",
	"entertainment": "https://assets.newspipe.example/stock/entertainment.jpg",
	"general":       "https://assets.newspipe.example/stock/general.jpg",
}

// StockImageURL returns the deterministic default asset for a category.
func StockImageURL(category string) string {
	if url, ok := stockImages[category]; ok {
		return url
	}
	return stockImages["general"]
}

// HTTPUploader posts assets to the configured asset host.
type HTTPUploader struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPUploader(endpoint, apiKey string, timeout time.Duration) *HTTPUploader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPUploader{endpoint: endpoint, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

func (u *HTTPUploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint+"?name="+name, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload asset: HTTP %d: %s", resp.StatusCode, body)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload response carries no url")
	}
	return out.URL, nil
}
