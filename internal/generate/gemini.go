package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider wraps one Gemini model behind the Provider interface. The
// same client is shared by every model in the vendor's chain.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiProviders returns one provider per model, in priority order.
func NewGeminiProviders(client *genai.Client, models []string) []Provider {
	providers := make([]Provider, 0, len(models))
	for _, m := range models {
		providers = append(providers, &GeminiProvider{client: client, model: m})
	}
	return providers
}

func (g *GeminiProvider) ID() string { return g.model }

func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini %s: empty response", g.model)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini %s: no text parts in response", g.model)
	}
	return b.String(), nil
}
