package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

// MaxListingItems caps the number of candidates taken from one listing page.
const MaxListingItems = 50

const (
	listingSelector         = `[data-component="BrowseGrid"] a[href*="/p/"], a[href*="/product/"]`
	listingFallbackSelector = `a.css-1n1`
)

// ParseListing extracts candidate items from browse-page markup in document
// order. Duplicate slugs are kept. Markup without any product anchors yields
// an empty slice.
func ParseListing(body []byte) ([]catalog.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	anchors := doc.Find(listingSelector)
	if anchors.Length() == 0 {
		anchors = doc.Find(listingFallbackSelector)
	}

	items := make([]catalog.CandidateItem, 0, min(anchors.Length(), MaxListingItems))
	anchors.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		slug := slugFromHref(href)
		if slug == "" {
			return true
		}
		title := strings.Join(strings.Fields(a.Text()), " ")
		if title == "" {
			title = slug
		}
		items = append(items, catalog.CandidateItem{Slug: slug, Title: title})
		return len(items) < MaxListingItems
	})
	return items, nil
}

// slugFromHref returns the last path segment of href, ignoring any query,
// fragment and trailing slashes.
func slugFromHref(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	href = strings.TrimRight(strings.TrimSpace(href), "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	return href
}
