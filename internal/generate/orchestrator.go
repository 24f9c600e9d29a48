// Package generate turns a candidate prompt into a validated structured
// article, walking an ordered provider chain and degrading gracefully when
// providers are limited or return garbage.
package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"

	"newspipe/internal/logger"
	"newspipe/internal/metrics"
	"newspipe/internal/retry"
)

// Provider is one generation model in the fallback chain.
type Provider interface {
	ID() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Limiter is the rate-limit tracker contract the orchestrator needs.
type Limiter interface {
	MarkLimited(providerID string)
	IsLimited(providerID string) bool
}

// Orchestrator walks the provider chain in priority order. Each candidate
// gets at most one pass through the chain.
type Orchestrator struct {
	chain   []Provider
	tracker Limiter
	timeout time.Duration
	retry   retry.Config
}

func NewOrchestrator(chain []Provider, tracker Limiter, timeout time.Duration, rc retry.Config) *Orchestrator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 3
	}
	if rc.Delay <= 0 {
		rc.Delay = time.Second
	}
	return &Orchestrator{
		chain:   chain,
		tracker: tracker,
		timeout: timeout,
		retry:   rc,
	}
}

// Generate returns a validated article or nil when the whole chain is
// exhausted. A nil result means "skip this candidate this cycle", never a
// fatal condition.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) *Article {
	allLimited := true
	for _, p := range o.chain {
		if !o.tracker.IsLimited(p.ID()) {
			allLimited = false
			break
		}
	}

	for i, p := range o.chain {
		if o.tracker.IsLimited(p.ID()) && !allLimited {
			logger.Debug("skipping limited provider", "provider", p.ID())
			continue
		}
		if i > 0 {
			metrics.Global.IncProviderFallbacks()
		}

		raw, err := o.callProvider(ctx, p, prompt)
		if err != nil {
			if IsQuotaError(err) {
				// Hard provider failure: cool the provider down and move
				// on, never retry it in place.
				o.tracker.MarkLimited(p.ID())
				metrics.Global.IncProvidersMarkedLimited()
				logger.Warn("provider quota exhausted", "provider", p.ID(), "error", err)
				continue
			}
			logger.Warn("provider call failed", "provider", p.ID(), "error", err)
			continue
		}

		art, err := ParseArticle(raw)
		if err != nil {
			// Malformed output is a soft failure: no rate-limit mutation.
			logger.Warn("unusable provider output", "provider", p.ID(), "error", err)
			continue
		}

		category, agreed := ReconcileCategory(art.Category, art.Headline+" "+art.Content)
		if !agreed {
			metrics.Global.IncCategoryDisagreements()
			logger.Debug("category classifiers disagreed",
				"provider", p.ID(), "reported", art.Category, "resolved", category)
		}
		art.Category = category

		logger.Info("article generated", "provider", p.ID(), "category", category)
		return art
	}

	logger.Warn("generation chain exhausted")
	return nil
}

// callProvider runs one provider under the bounded timeout with a small
// retry for transient errors. Quota errors abort the retry loop so they
// reach the caller on the first occurrence.
func (o *Orchestrator) callProvider(ctx context.Context, p Provider, prompt string) (string, error) {
	var raw string
	err := retry.Do(ctx, o.retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		out, err := p.Generate(callCtx, prompt)
		if err != nil {
			if IsQuotaError(err) {
				return retry.Abort(err)
			}
			return err
		}
		raw = out
		return nil
	})
	return raw, err
}

// IsQuotaError reports whether err is a quota / too-many-requests style
// provider rejection, as opposed to a transient network error.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"quota", "rate limit", "too many requests", "resource exhausted", "429"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// BuildPrompt renders the generation instruction for one candidate. The
// response contract mirrors what ParseArticle expects.
func BuildPrompt(headline, body, sourceURL string) string {
	return fmt.Sprintf(`You are a newsroom rewrite assistant. Rewrite the source material below into an original structured news article.

SOURCE HEADLINE: %s
SOURCE URL: %s
SOURCE TEXT:
%s

Respond with ONLY a JSON object, no prose and no markdown fences, using this schema:
{
  "headline": "rewritten headline, factual, under 120 characters",
  "content": "rewritten article body, 3-6 paragraphs, no invented facts",
  "tags": ["3-6 short topic tags"],
  "category": "one of: politics, economy, disaster, crime, technology, health, sports, entertainment, general",
  "image_keyword": "2-4 words describing a suitable illustration",
  "date": "publication date in YYYY-MM-DD if stated in the source, else empty string"
}`, headline, sourceURL, body)
}
