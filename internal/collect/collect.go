// Package collect gathers raw article candidates from configured RSS
// sources and enriches them with scraped full text.
package collect

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"newspipe/internal/logger"
	"newspipe/internal/metrics"
)

// Candidate is one raw news item entering the pipeline.
type Candidate struct {
	Headline    string
	Body        string
	SourceURL   string
	SourceName  string
	BotID       string
	PublishedAt time.Time
}

// Source is one configured upstream feed.
type Source struct {
	Name string `yaml:"name"`
	Feed string `yaml:"feed"`
	Bot  string `yaml:"bot"`
}

// SourcesConfig is the YAML shape of configs/sources.yaml.
type SourcesConfig struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the source list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources config: %w", err)
	}
	defer f.Close()

	var cfg SourcesConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode sources config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("sources config %s lists no sources", path)
	}
	for i, s := range cfg.Sources {
		if s.Feed == "" {
			return nil, fmt.Errorf("source %d (%q) has no feed URL", i, s.Name)
		}
	}
	return cfg.Sources, nil
}

// Collector pulls feed items and turns them into candidates.
type Collector struct {
	parser      *gofeed.Parser
	scraper     *Scraper
	maxAge      time.Duration
	concurrency int
	now         func() time.Time
}

func NewCollector(scraper *Scraper, maxAge time.Duration, concurrency int) *Collector {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Collector{
		parser:      gofeed.NewParser(),
		scraper:     scraper,
		maxAge:      maxAge,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Collect fetches every source's feed and returns fresh candidates,
// newest first. A broken feed is logged and skipped; one dead source must
// not stall the rest.
func (c *Collector) Collect(ctx context.Context, sources []Source) []Candidate {
	var candidates []Candidate
	ok := 0
	for _, src := range sources {
		items, err := c.fetchFeed(ctx, src)
		if err != nil {
			logger.Warn("feed fetch failed", "source", src.Name, "error", err)
			continue
		}
		ok++
		candidates = append(candidates, items...)
	}
	logger.Info("feeds collected", "sources_ok", ok, "sources_total", len(sources), "candidates", len(candidates))

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
	})
	metrics.Global.AddCandidatesSeen(len(candidates))
	return candidates
}

func (c *Collector) fetchFeed(ctx context.Context, src Source) ([]Candidate, error) {
	feed, err := c.parser.ParseURLWithContext(src.Feed, ctx)
	if err != nil {
		return nil, err
	}

	cutoff := c.now().Add(-c.maxAge)
	var out []Candidate
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		published := itemTime(item)
		// Items without a timestamp pass; stale items do not.
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}
		out = append(out, Candidate{
			Headline:    item.Title,
			Body:        item.Description,
			SourceURL:   item.Link,
			SourceName:  src.Name,
			BotID:       src.Bot,
			PublishedAt: published,
		})
	}
	logger.Debug("feed parsed", "source", src.Name, "items", len(feed.Items), "fresh", len(out))
	return out, nil
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

// Enrich replaces each candidate's feed snippet with scraped full text
// where the scrape succeeds, keeping the snippet otherwise. Scrapes run
// under a bounded worker pool.
func (c *Collector) Enrich(ctx context.Context, candidates []Candidate) []Candidate {
	if c.scraper == nil || len(candidates) == 0 {
		return candidates
	}

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(cand *Candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			text, err := c.scraper.FullText(ctx, cand.SourceURL)
			if err != nil {
				logger.Debug("scrape failed, keeping feed snippet", "url", cand.SourceURL, "error", err)
				return
			}
			if len(text) > len(cand.Body) {
				cand.Body = text
			}
		}(&candidates[i])
	}
	wg.Wait()
	return candidates
}
