package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/metrics"
)

const (
	descriptionSelector         = `[data-component="Description"]`
	descriptionFallbackSelector = `div[data-testid='pdp-description']`
)

var (
	releaseLabelPattern = regexp.MustCompile(`(?i)release date`)
	isoDatePattern      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// EnricherConfig describes how detail URLs are built.
type EnricherConfig struct {
	BaseURL string
	// DetailURLTemplate may reference {base_url} and {slug}.
	DetailURLTemplate string
}

// Enricher fetches a candidate's detail page and extracts optional fields.
type Enricher struct {
	fetcher  catalog.Fetcher
	baseURL  string
	template string
	logger   *zap.Logger
}

// NewEnricher builds an Enricher. The fetcher is expected to retry on its own.
func NewEnricher(fetcher catalog.Fetcher, cfg EnricherConfig, logger *zap.Logger) *Enricher {
	return &Enricher{
		fetcher:  fetcher,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		template: cfg.DetailURLTemplate,
		logger:   logging.OrNop(logger).Named("enricher"),
	}
}

// DetailURL renders the detail page URL for slug.
func (e *Enricher) DetailURL(slug string) string {
	return strings.NewReplacer(
		"{base_url}", e.baseURL,
		"{slug}", url.PathEscape(slug),
	).Replace(e.template)
}

// Enrich never fails: fetch or parse errors produce a degraded Enrichment
// carrying the candidate unchanged.
func (e *Enricher) Enrich(ctx context.Context, item catalog.CandidateItem) catalog.Enrichment {
	detailURL := e.DetailURL(item.Slug)
	page, err := e.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return e.degrade(item, fmt.Errorf("fetch detail: %w", err))
	}
	description, releaseDate, err := ParseDetail(page.Body)
	if err != nil {
		return e.degrade(item, err)
	}
	metrics.ObserveEnrichment(string(catalog.OutcomeEnriched))
	return catalog.Enrichment{
		Item: catalog.EnrichedItem{
			CandidateItem: item,
			Description:   description,
			ReleaseDate:   releaseDate,
		},
		Outcome: catalog.OutcomeEnriched,
	}
}

func (e *Enricher) degrade(item catalog.CandidateItem, reason error) catalog.Enrichment {
	e.logger.Warn("detail enrichment degraded",
		zap.String("slug", item.Slug),
		zap.Error(reason),
	)
	return degraded(item, reason)
}

func degraded(item catalog.CandidateItem, reason error) catalog.Enrichment {
	metrics.ObserveEnrichment(string(catalog.OutcomeDegraded))
	return catalog.Enrichment{
		Item:    catalog.EnrichedItem{CandidateItem: item},
		Outcome: catalog.OutcomeDegraded,
		Reason:  reason,
	}
}

// ParseDetail extracts the description and release date from a detail page.
// Either may be nil when the page does not carry it.
func ParseDetail(body []byte) (*string, *catalog.Date, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse detail html: %w", err)
	}

	var description *string
	desc := doc.Find(descriptionSelector).First()
	if desc.Length() == 0 {
		desc = doc.Find(descriptionFallbackSelector).First()
	}
	if desc.Length() > 0 {
		if text := joinedText(desc.Nodes[0]); text != "" {
			description = &text
		}
	}

	var releaseDate *catalog.Date
	for _, root := range doc.Nodes {
		if d, ok := findReleaseDate(root); ok {
			releaseDate = &d
			break
		}
	}
	return description, releaseDate, nil
}

// findReleaseDate looks for a "Release Date" label whose parent element holds
// a valid YYYY-MM-DD date. Labels without one are skipped.
func findReleaseDate(n *html.Node) (catalog.Date, bool) {
	if n.Type == html.TextNode && n.Parent != nil && releaseLabelPattern.MatchString(n.Data) {
		for _, candidate := range isoDatePattern.FindAllString(joinedText(n.Parent), -1) {
			if d, err := catalog.ParseDate(candidate); err == nil {
				return d, true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if d, ok := findReleaseDate(c); ok {
			return d, true
		}
	}
	return catalog.Date{}, false
}

// joinedText concatenates the trimmed text nodes under n with single spaces.
func joinedText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if s := strings.TrimSpace(node.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
