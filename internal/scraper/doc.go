// Package scraper implements the scrape-and-upsert pipeline: fetch the
// storefront browse page, extract candidate games, enrich each one from its
// detail page under a concurrency governor, and reconcile the results into
// the catalog keyed by slug.
package scraper
