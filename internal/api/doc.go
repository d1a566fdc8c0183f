// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/scrape to run the pipeline, synchronously or in the background.
//   - GET /v1/scrape/runs/{run_id} for background run status.
//   - GET /v1/dns-check for resolver diagnostics.
//   - /v1/games and /v1/{publishers,developers,genres,platforms} for catalog CRUD.
//   - /v1/price_offers and /v1/{game_genres,game_platforms} for offers and links.
package api
