package collect

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Scraper extracts full article text from news pages. Feed descriptions
// are often a single teaser sentence; the scraped body gives the
// generation providers real material to work with.
type Scraper struct {
	client *http.Client
}

func NewScraper(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{client: &http.Client{Timeout: timeout}}
}

// Ordered per-site selector lists, most specific first. The generic list
// at the end handles everything else.
var siteSelectors = map[string][]string{
	"bangkokpost.com": {".article-content p", ".articl-content p", "#articleContent p"},
	"nationthailand.com": {".article-detail p", ".content-detail p"},
	"reuters.com": {"[data-testid=paragraph]", ".article-body__content__17Yit p"},
	"bbc.": {"[data-component=text-block] p", ".ssrcss-1q0x1qg-Paragraph"},
}

var genericSelectors = []string{
	"article p",
	".article p",
	".article-body p",
	".post-content p",
	".entry-content p",
	".content p",
	"main p",
	"p",
}

// FullText downloads url and returns the extracted article body.
func (s *Scraper) FullText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newspipe/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	text := extractBody(doc, url)
	if text == "" {
		return "", fmt.Errorf("no article body found")
	}
	return text, nil
}

func extractBody(doc *goquery.Document, url string) string {
	for host, selectors := range siteSelectors {
		if strings.Contains(url, host) {
			if text := collectParagraphs(doc, selectors, 1); text != "" {
				return text
			}
			break
		}
	}
	return collectParagraphs(doc, genericSelectors, 3)
}

// collectParagraphs walks the selector list and stops at the first
// selector that yields at least minParagraphs non-trivial paragraphs.
func collectParagraphs(doc *goquery.Document, selectors []string, minParagraphs int) string {
	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= minParagraphs {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}
