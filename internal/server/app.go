// Package server wires configuration into running portal services.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/api"
	"github.com/vedicportal/portal/internal/blogfeed"
	"github.com/vedicportal/portal/internal/clock"
	"github.com/vedicportal/portal/internal/config"
	"github.com/vedicportal/portal/internal/fallback"
	collyfetcher "github.com/vedicportal/portal/internal/fetcher/colly"
	"github.com/vedicportal/portal/internal/id"
	"github.com/vedicportal/portal/internal/logging"
	"github.com/vedicportal/portal/internal/metrics"
	"github.com/vedicportal/portal/internal/policy/ratelimit"
	"github.com/vedicportal/portal/internal/portal"
	"github.com/vedicportal/portal/internal/pradipika"
	memorypublisher "github.com/vedicportal/portal/internal/publisher/memory"
	gcppublisher "github.com/vedicportal/portal/internal/publisher/pubsub"
	"github.com/vedicportal/portal/internal/scheduler"
	"github.com/vedicportal/portal/internal/scrape/blogs"
	"github.com/vedicportal/portal/internal/scrape/issues"
	"github.com/vedicportal/portal/internal/snapshot"
	gcsstorage "github.com/vedicportal/portal/internal/storage/gcs"
	localstorage "github.com/vedicportal/portal/internal/storage/local"
	memorystorage "github.com/vedicportal/portal/internal/storage/memory"
	pgstore "github.com/vedicportal/portal/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	apiServer    *api.Server
	scheduler    *scheduler.Scheduler
	blogs        *blogfeed.Service
	issues       *pradipika.Service
	publisher    *gcppublisher.Publisher
	storage      *storage.Client
	issueStore   *pgstore.IssueStore
	ownsLogger   bool
	closeTimeout time.Duration
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg config.Config, logger *zap.Logger) *App {
	logger = logging.OrNop(logger)
	logger.Info("creating application",
		zap.Int("server_port", cfg.Server.Port),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
		zap.String("snapshot_backend", cfg.Snapshots.Backend),
	)
	return &App{cfg: cfg, logger: logger, closeTimeout: shutdownTimeout}
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler { return a.apiServer.Handler() }

// ScrapeBlogs scrapes the blog index once, bypassing the cache.
func (a *App) ScrapeBlogs(ctx context.Context, limit int) (blogfeed.Result, error) {
	return a.blogs.Read(ctx, limit, true)
}

// SyncIssues runs one magazine directory sync.
func (a *App) SyncIssues(ctx context.Context) (pradipika.SyncResult, error) {
	return a.issues.Sync(ctx)
}

// Run serves HTTP and runs scheduled jobs until ctx is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.scheduler.Start()
	for _, name := range a.scheduler.Jobs() {
		next, _ := a.scheduler.Next(name)
		a.logger.Info("scheduled job", zap.String("job", name), zap.Time("next", next))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.closeTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop timed out", zap.Error(err))
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	default:
		return nil
	}
}

// Close releases infrastructure clients and flushes the logger.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.issueStore != nil {
		a.issueStore.Close()
	}
	a.logger.Info("shutdown complete")
	if a.ownsLogger {
		// Sync on stderr-backed loggers returns EINVAL on some platforms.
		_ = a.logger.Sync()
	}
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app, err := build(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	app.ownsLogger = true
	return app, nil
}

func build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()
	app := NewApp(cfg, logger)
	app.logger.Info("building application dependencies")

	fetcher := setupFetcher(app)

	recorder, err := setupSnapshots(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	store, err := setupDatabase(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	scraper := blogs.New(
		fetcher,
		blogs.Config{IndexURL: cfg.Blogs.IndexURL, DefaultAuthor: cfg.Blogs.DefaultAuthor},
		blogs.DefaultRules().WithThumbnailHosts(cfg.Blogs.ThumbnailHosts),
		recorder,
		app.logger,
	)
	app.blogs = blogfeed.NewService(
		scraper,
		blogfeed.NewCache(clock.New(), cfg.Blogs.CacheTTL),
		fallback.Blogs,
		app.logger,
	)

	parser, err := issues.NewParser(issues.Config{
		BaseURL:    cfg.Pradipika.BaseURL,
		LinkMarker: cfg.Pradipika.LinkMarker,
	}, issues.DefaultVocabulary())
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("directory parser init failed: %w", err)
	}
	app.issues = pradipika.New(
		fetcher,
		parser,
		store,
		id.NewUUIDv7(),
		clock.New(),
		publisher,
		recorder,
		fallback.Issues,
		pradipika.Config{DirectoryURL: cfg.Pradipika.DirectoryURL, Topic: cfg.PubSub.TopicName},
		app.logger,
	)

	if app.scheduler, err = setupScheduler(app); err != nil {
		app.Close()
		return nil, err
	}

	app.apiServer = api.NewServer(app.blogs, app.issues, cfg, app.logger)
	return app, nil
}

func setupFetcher(app *App) *collyfetcher.Fetcher {
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   app.cfg.HTTP.RateLimitRPS,
		DefaultBurst: app.cfg.HTTP.RateLimitBurst,
	})
	app.logger.Info("using colly fetcher",
		zap.String("user_agent", app.cfg.HTTP.UserAgent),
		zap.Duration("timeout", app.cfg.RequestTimeout()),
		zap.Float64("rate_limit_rps", app.cfg.HTTP.RateLimitRPS),
	)
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: app.cfg.HTTP.UserAgent,
		Timeout:   app.cfg.RequestTimeout(),
		Limiter:   limiter,
	})
}

// setupSnapshots returns a nil Snapshotter when archiving is disabled so the
// scrapers skip it entirely.
func setupSnapshots(ctx context.Context, app *App) (blogs.Snapshotter, error) {
	var (
		blobStore portal.BlobStore
		err       error
	)
	switch app.cfg.Snapshots.Backend {
	case config.SnapshotGCS:
		app.logger.Info("using GCS snapshot backend", zap.String("bucket", app.cfg.Snapshots.Bucket))
		app.storage, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		blobStore, err = gcsstorage.New(app.storage, gcsstorage.Config{Bucket: app.cfg.Snapshots.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
	case config.SnapshotLocal:
		app.logger.Info("using local snapshot backend", zap.String("path", app.cfg.Snapshots.BaseDir))
		blobStore, err = localstorage.New(localstorage.Config{BaseDir: app.cfg.Snapshots.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
	case config.SnapshotMemory:
		app.logger.Info("using in-memory snapshot backend")
		blobStore = memorystorage.NewBlobStore()
	default:
		app.logger.Info("snapshots disabled")
		return nil, nil
	}
	recorder, err := snapshot.New(blobStore, snapshot.Config{Prefix: app.cfg.Snapshots.Prefix}, clock.New(), app.logger)
	if err != nil {
		return nil, fmt.Errorf("snapshot recorder init failed: %w", err)
	}
	return recorder, nil
}

func setupDatabase(ctx context.Context, app *App) (portal.IssueStore, error) {
	if app.cfg.Database.DSN == "" {
		app.logger.Warn("No DSN specified for database, using in-memory issue store")
		return memorystorage.NewIssueStore(), nil
	}
	store, err := pgstore.NewIssueStore(ctx, pgstore.IssueStoreConfig{
		DSN:             app.cfg.Database.DSN,
		Table:           app.cfg.Database.Table,
		MaxConns:        app.cfg.Database.MaxConns,
		MinConns:        app.cfg.Database.MinConns,
		MaxConnLifetime: app.cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("issue store init failed: %w", err)
	}
	app.issueStore = store
	if app.cfg.Database.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("issue store migrate failed: %w", err)
		}
	}
	app.logger.Info("issue store initialized", zap.String("table", app.cfg.Database.Table))
	return store, nil
}

func setupPublisher(ctx context.Context, app *App) (portal.Publisher, error) {
	if app.cfg.PubSub.TopicName == "" || app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("No Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.publisher = gcppublisher.New(client)
	app.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return app.publisher, nil
}

func setupScheduler(app *App) (*scheduler.Scheduler, error) {
	s, err := scheduler.New(app.cfg.Schedule.Timezone, app.logger)
	if err != nil {
		return nil, fmt.Errorf("scheduler init failed: %w", err)
	}
	if err := s.Add(scheduler.BlogRefreshJob(app.cfg.Schedule.BlogRefresh, app.blogs)); err != nil {
		return nil, err
	}
	if err := s.Add(scheduler.PradipikaSyncJob(app.cfg.Schedule.PradipikaSync, app.issues)); err != nil {
		return nil, err
	}
	return s, nil
}
