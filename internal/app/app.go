// Package app builds the catalog service from configuration and owns the
// lifecycle of its long-lived dependencies.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/api"
	"github.com/JakeFAU/game-catalog/internal/archive"
	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/clock"
	"github.com/JakeFAU/game-catalog/internal/config"
	"github.com/JakeFAU/game-catalog/internal/dispatcher"
	"github.com/JakeFAU/game-catalog/internal/fetcher"
	collyfetcher "github.com/JakeFAU/game-catalog/internal/fetcher/colly"
	"github.com/JakeFAU/game-catalog/internal/fetcher/headless"
	"github.com/JakeFAU/game-catalog/internal/headless/detector"
	"github.com/JakeFAU/game-catalog/internal/id/uuid"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/netdiag"
	"github.com/JakeFAU/game-catalog/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/game-catalog/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/game-catalog/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/game-catalog/internal/queue/memory"
	"github.com/JakeFAU/game-catalog/internal/scraper"
	gcsstorage "github.com/JakeFAU/game-catalog/internal/storage/gcs"
	localstorage "github.com/JakeFAU/game-catalog/internal/storage/local"
	memorystorage "github.com/JakeFAU/game-catalog/internal/storage/memory"
	pgstore "github.com/JakeFAU/game-catalog/internal/storage/postgres"
	"github.com/JakeFAU/game-catalog/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	pool     *pgxpool.Pool
	games    catalog.GameStore
	entities catalog.EntityStore
	offers   catalog.PriceOfferStore
	links    catalog.LinkStore
	runs     catalog.RunStore

	blobs     catalog.BlobStore
	gcs       *gcsstorage.BlobStore
	publisher catalog.Publisher
	pubsub    *pubsub.Client
	gcpPub    *gcppublisher.Publisher
	headless  *headless.Fetcher

	pipeline *scraper.Pipeline
	resolver *netdiag.Resolver
	queue    *queuememory.Queue
	dispatch *dispatcher.Dispatcher
	api      *api.Server
}

// Build creates every dependency described by cfg. Whatever was opened
// before a failure is closed again.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logging.OrNop(logger)}
	a.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("database", cfg.Database.DSN != ""),
		zap.String("listing_url", cfg.Scraper.ListingURL()),
	)

	steps := []func(context.Context) error{
		a.setupStores,
		a.setupBlobStore,
		a.setupPublisher,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			a.closeInfrastructure()
			return nil, err
		}
	}

	a.pipeline = a.buildPipeline()
	a.resolver = netdiag.New(netdiag.Config{Nameservers: cfg.Scraper.SmartDNS}, a.logger)
	a.dispatch = a.buildDispatcher()
	a.api = a.buildAPI()
	return a, nil
}

func (a *App) setupStores(ctx context.Context) error {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("no database DSN configured, using in-memory stores")
		a.games = memorystorage.NewGameStore()
		a.entities = memorystorage.NewEntityStore()
		a.offers = memorystorage.NewPriceOfferStore(a.games)
		a.links = memorystorage.NewLinkStore(a.games, a.entities)
		a.runs = memorystorage.NewRunStore()
		return nil
	}

	pool, err := pgstore.Open(ctx, pgstore.Config{
		DSN:             a.cfg.Database.DSN,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("postgres init failed: %w", err)
	}
	a.pool = pool
	if a.cfg.Database.Migrate {
		if err := pgstore.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrate failed: %w", err)
		}
		a.logger.Info("database schema applied")
	}

	games, err := pgstore.NewGameStore(pool)
	if err != nil {
		return fmt.Errorf("game store init failed: %w", err)
	}
	entities, err := pgstore.NewEntityStore(pool)
	if err != nil {
		return fmt.Errorf("entity store init failed: %w", err)
	}
	offers, err := pgstore.NewPriceOfferStore(pool)
	if err != nil {
		return fmt.Errorf("price offer store init failed: %w", err)
	}
	links, err := pgstore.NewLinkStore(pool)
	if err != nil {
		return fmt.Errorf("link store init failed: %w", err)
	}
	runs, err := pgstore.NewRunStore(pool)
	if err != nil {
		return fmt.Errorf("run store init failed: %w", err)
	}
	a.games, a.entities, a.runs = games, entities, runs
	a.offers, a.links = offers, links
	a.logger.Info("postgres stores initialized")
	return nil
}

func (a *App) setupBlobStore(ctx context.Context) error {
	if !a.cfg.Scraper.Archive.Enabled {
		a.logger.Info("listing archive disabled")
		return nil
	}
	switch a.cfg.Storage.Backend {
	case "gcs":
		store, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: a.cfg.Storage.Bucket}, a.logger)
		if err != nil {
			return fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.gcs = store
		a.blobs = store
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.Bucket))
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.Local.BaseDir})
		if err != nil {
			return fmt.Errorf("local blob store init failed: %w", err)
		}
		a.blobs = store
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.Local.BaseDir))
	default:
		a.blobs = memorystorage.NewBlobStore()
		a.logger.Info("using in-memory storage backend")
	}
	return nil
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.PubSub.ProjectID == "" || a.cfg.PubSub.TopicName == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		a.publisher = memorypublisher.New(a.logger)
		return nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsub = client
	a.gcpPub = gcppublisher.New(client)
	a.publisher = a.gcpPub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return nil
}

func (a *App) buildPipeline() *scraper.Pipeline {
	sc := a.cfg.Scraper
	policy := fetcher.NewExponentialRetryPolicy(sc.Retry.MaxAttempts, sc.Retry.MinBackoff, sc.Retry.MaxBackoff)
	limiter := ratelimit.New(ratelimit.Config{RPS: sc.MaxRequestsPerSecond})
	base := collyfetcher.New(collyfetcher.Config{
		UserAgents:  sc.UserAgents,
		Timeout:     sc.RequestTimeout,
		Nameservers: sc.SmartDNS,
		Limiter:     limiter,
	})
	detail := fetcher.NewRetrying(base, policy, a.logger)

	var listing catalog.Fetcher = detail
	if sc.Headless.Enabled {
		a.headless = headless.NewChromedp(headless.Config{
			UserAgents:        sc.UserAgents,
			NavigationTimeout: sc.Headless.NavigationTimeout,
		})
		rendered := fetcher.NewRetrying(a.headless, policy, a.logger)
		if sc.Headless.Promote {
			shell := detector.NewHeuristic(0, listingReady)
			listing = fetcher.NewPromoting(detail, rendered, shell, a.logger)
		} else {
			listing = rendered
		}
		a.logger.Info("headless listing fetch enabled", zap.Bool("promote", sc.Headless.Promote))
	}

	enricher := scraper.NewEnricher(detail, scraper.EnricherConfig{
		BaseURL:           sc.BaseURL,
		DetailURLTemplate: sc.DetailURLTemplate,
	}, a.logger)
	governor := scraper.NewGovernor(enricher, scraper.GovernorConfig{
		Concurrency: sc.Concurrency,
		Delay:       sc.Delay(),
	}, a.logger)
	reconciler := scraper.NewReconciler(a.games, scraper.DescriptionPolicy(sc.DescriptionPolicy), a.logger)

	opts := []scraper.Option{
		scraper.WithLogger(a.logger),
		scraper.WithClock(clock.System{}),
		scraper.WithPublisher(a.publisher),
	}
	if a.blobs != nil {
		opts = append(opts, scraper.WithArchive(a.blobs, archive.NewNamer(sc.Archive.Prefix, "")))
	}
	return scraper.NewPipeline(scraper.PipelineConfig{
		ListingURL:         sc.ListingURL(),
		SingleFlight:       sc.SingleFlight,
		ArchiveContentType: a.cfg.Storage.ContentType,
		EventTopic:         a.cfg.PubSub.TopicName,
	}, listing, governor, reconciler, opts...)
}

// listingReady reports whether a plain response already carries product anchors.
func listingReady(body []byte) bool {
	items, err := scraper.ParseListing(body)
	return err == nil && len(items) > 0
}

func (a *App) buildDispatcher() *dispatcher.Dispatcher {
	a.queue = queuememory.NewQueue(a.cfg.Worker.QueueDepth)
	workers := make([]*worker.Worker, 0, a.cfg.Worker.Count)
	for i := 0; i < a.cfg.Worker.Count; i++ {
		workers = append(workers, worker.New(
			a.queue,
			a.runs,
			a.pipeline,
			worker.Config{RunTimeout: a.cfg.Worker.RunTimeout},
			a.logger.With(zap.Int("worker", i)),
		))
	}
	return dispatcher.New(a.queue, a.runs, uuid.New(), clock.System{}, workers, a.logger)
}

func (a *App) buildAPI() *api.Server {
	deps := api.Deps{
		Games:     a.games,
		Entities:  a.entities,
		Offers:    a.offers,
		Links:     a.links,
		Runs:      a.runs,
		Runner:    a.pipeline,
		Submitter: a.dispatch,
		DNS:       a.resolver,
		IDs:       uuid.New(),
		Clock:     clock.System{},
	}
	if a.pool != nil {
		deps.Ready = a.pool
	}
	return api.NewServer(deps, api.Config{
		RequestTimeout: a.cfg.Server.RequestTimeout,
		AuthEnabled:    a.cfg.Auth.Enabled,
		APIKey:         a.cfg.Auth.APIKey,
		DefaultDNSHost: a.cfg.Scraper.BaseHost(),
	}, a.logger)
}

// Handler exposes the HTTP API.
func (a *App) Handler() http.Handler {
	return a.api.Handler()
}

// Pipeline returns the scrape-and-upsert pipeline.
func (a *App) Pipeline() *scraper.Pipeline {
	return a.pipeline
}

// Scrape runs one synchronous scrape-and-upsert pass.
func (a *App) Scrape(ctx context.Context) (catalog.PipelineResult, error) {
	return a.pipeline.Run(ctx)
}

// Serve runs the HTTP server and the worker pool until ctx is canceled or
// the listener fails, then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var err error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown initiated")
	case err = <-serveErr:
		if err != nil {
			a.logger.Error("http server error", zap.Error(err))
			err = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error("server shutdown error", zap.Error(shutdownErr))
	}
	cancel()
	<-dispatchDone
	return err
}

// Close releases every resource Build opened.
func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.gcpPub != nil {
		a.gcpPub.Stop()
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
