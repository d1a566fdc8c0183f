package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/metrics"
	"github.com/JakeFAU/game-catalog/internal/netdiag"
)

// RunSubmitter queues background pipeline runs.
type RunSubmitter interface {
	Submit(ctx context.Context) (catalog.Run, error)
}

// DNSChecker reports resolver diagnostics for a host.
type DNSChecker interface {
	ResolveDebug(ctx context.Context, host string) netdiag.Report
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers use. Games and Entities are
// required; a nil Runner, Submitter, Runs or DNS answers 503 on its routes.
// The price offer and link routes are mounted only when their store is set.
type Deps struct {
	Games     catalog.GameStore
	Entities  catalog.EntityStore
	Offers    catalog.PriceOfferStore
	Links     catalog.LinkStore
	Runs      catalog.RunStore
	Runner    catalog.Runner
	Submitter RunSubmitter
	DNS       DNSChecker
	Ready     Pinger
	IDs       catalog.IDGenerator
	Clock     catalog.Clock
}

// Config controls server behavior.
type Config struct {
	RequestTimeout time.Duration
	AuthEnabled    bool
	APIKey         string
	// DefaultDNSHost is checked when /v1/dns-check has no host parameter.
	DefaultDNSHost string
}

// Server wires HTTP handlers to the pipeline and stores.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg Config, logger *zap.Logger) *Server {
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("api"),
	}
	if cfg.RequestTimeout <= 0 {
		s.cfg.RequestTimeout = 120 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(s.cfg.RequestTimeout))
		if cfg.AuthEnabled {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}

		r.Route("/scrape", func(r chi.Router) {
			r.Post("/", s.scrape)
			r.Get("/runs/{run_id}", s.getRun)
		})
		r.Get("/dns-check", s.dnsCheck)

		r.Route("/games", func(r chi.Router) {
			r.Get("/", s.listGames)
			r.Post("/", s.createGame)
			r.Delete("/", s.deleteAllGames)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getGame)
				r.Put("/", s.updateGame)
				r.Delete("/", s.deleteGame)
			})
		})

		for _, kind := range catalog.EntityKinds {
			h := entityHandlers{server: s, kind: kind}
			r.Route("/"+string(kind), func(r chi.Router) {
				r.Get("/", h.list)
				r.Post("/", h.create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.get)
					r.Put("/", h.update)
					r.Delete("/", h.delete)
				})
			})
		}

		if deps.Offers != nil {
			r.Route("/price_offers", func(r chi.Router) {
				r.Get("/", s.listOffers)
				r.Post("/", s.createOffer)
				r.Delete("/", s.deleteAllOffers)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.getOffer)
					r.Put("/", s.updateOffer)
					r.Delete("/", s.deleteOffer)
				})
			})
		}

		if deps.Links != nil {
			for _, kind := range catalog.LinkKinds {
				h := linkHandlers{server: s, kind: kind}
				r.Route("/"+string(kind), func(r chi.Router) {
					r.Get("/", h.list)
					r.Post("/", h.create)
					r.Delete("/", h.deleteAll)
					r.Delete("/{game_id}/{entity_id}", h.delete)
				})
			}
		}
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
