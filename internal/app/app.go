package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/findologic/plugin-shopware-5-sub000/internal/client"
	"github.com/findologic/plugin-shopware-5-sub000/internal/config"
	"github.com/findologic/plugin-shopware-5-sub000/internal/engine"
	esengine "github.com/findologic/plugin-shopware-5-sub000/internal/engine/elasticsearch"
	"github.com/findologic/plugin-shopware-5-sub000/internal/engine/memory"
	"github.com/findologic/plugin-shopware-5-sub000/internal/event"
	"github.com/findologic/plugin-shopware-5-sub000/internal/export"
	handler "github.com/findologic/plugin-shopware-5-sub000/internal/handler/http"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query/condition"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query/sorting"
	"github.com/findologic/plugin-shopware-5-sub000/internal/repository/postgres"
	"github.com/findologic/plugin-shopware-5-sub000/internal/repository/redis"
	"github.com/findologic/plugin-shopware-5-sub000/internal/response"
	"github.com/findologic/plugin-shopware-5-sub000/internal/response/facet"
	"github.com/findologic/plugin-shopware-5-sub000/internal/service"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/database"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/health"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/httpclient"
	pkgkafka "github.com/findologic/plugin-shopware-5-sub000/pkg/kafka"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/tracing"
)

const (
	serviceName    = "searchbridge"
	serviceVersion = "1.0.0"
)

// App wires together all dependencies and runs the search bridge.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc

	feeds    *redis.FeedCache
	client   *client.Client
	search   *service.SearchService
	index    *service.IndexService
	exporter *export.Exporter
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Shop catalog.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	database.SetSlowQueryLogging(200*time.Millisecond, logger)
	catalog := postgres.NewCatalogRepository(pool)

	// Export page cache.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	feedCache := redis.NewFeedCache(redisClient, cfg.FeedCacheTTL)

	// Native fallback engine.
	var native engine.NativeEngine
	var esEng *esengine.Engine
	switch cfg.NativeEngine {
	case config.EngineElasticsearch:
		esEng, err = esengine.New(ctx, cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		native = esEng
		logger.Info("elasticsearch native engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
	default:
		native = memory.New()
		logger.Info("in-memory native engine initialized")
	}

	// Search service client behind a circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.SearchTimeout
	breaker := httpclient.NewBreaker(
		httpclient.New(httpCfg),
		httpclient.DefaultBreakerConfig("search-service"),
		logger,
	)
	searchClient := client.New(breaker, cfg.SearchServiceURL, cfg.Shopkey, cfg.AliveTimeout, logger)

	searchService := service.NewSearchService(
		service.Config{
			SearchEnabled:     cfg.SearchEnabled,
			NavigationEnabled: cfg.NavigationEnabled,
			Query:             query.Config{Revision: cfg.PluginRevision, ShopType: cfg.ShopType},
		},
		searchClient,
		condition.NewRegistry(logger, condition.DefaultHandlers(catalog, catalog)...),
		sorting.NewRegistry(logger, sorting.DefaultHandlers()...),
		response.NewParser(logger, facet.DefaultHandlers()...),
		native,
		logger,
	)
	indexService := service.NewIndexService(catalog, native, cfg.ShopRootCategoryID, cfg.DefaultCustomerGroup, logger)

	exporter := export.NewExporter(export.Config{
		Shopkey:              cfg.Shopkey,
		BaseURL:              cfg.ShopBaseURL,
		RootCategoryID:       cfg.ShopRootCategoryID,
		DefaultCustomerGroup: cfg.DefaultCustomerGroup,
		HideOutOfStock:       cfg.ExportHideOutOfStock,
		MaxCount:             cfg.ExportMaxCount,
	}, catalog, feedCache, logger)

	// Product events keep the native index and the feed cache fresh.
	eventConsumer := event.NewConsumer(indexService, feedCache, logger)
	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topics:   event.Topics(),
		MinBytes: 1,
		MaxBytes: 10e6,
	}, pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Hour), eventConsumer.Handle, logger), logger)
	if cfg.KafkaDeadLetters {
		consumer.WithDeadLetters(pkgkafka.NewDeadLetters(cfg.KafkaBrokers, cfg.KafkaGroupID, logger))
	}
	logger.Info("kafka consumer initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.Any("topics", event.Topics()),
	)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", pool.Ping)
	healthHandler.Register("redis", feedCache.Ping)
	if esEng != nil {
		healthHandler.Register("elasticsearch", esEng.Ping)
	}
	healthHandler.RegisterOptional("search_service", searchClient.Ping)
	healthHandler.RegisterOptional("search_service_breaker", breaker.Check)
	healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	shop := handler.ShopDefaults{
		ShopID:               "1",
		Shopkey:              cfg.Shopkey,
		RootCategoryID:       cfg.ShopRootCategoryID,
		DefaultCustomerGroup: cfg.DefaultCustomerGroup,
		Currency:             "EUR",
		BaseURL:              cfg.ShopBaseURL,
	}
	router := handler.NewRouter(
		handler.NewSearchHandler(searchService, shop, logger),
		handler.NewExportHandler(exporter, logger),
		healthHandler,
		handler.Access{
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			CORSOrigins:    cfg.CORSAllowedOrigins,
			ExportCIDRs:    cfg.ExportAllowedCIDRs,
			DebugCIDRs:     cfg.DebugAllowedCIDRs,
			TrustedProxies: cfg.TrustedProxyCIDRs,
		},
		logger,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		consumer:       consumer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
		feeds:          feedCache,
		client:         searchClient,
		search:         searchService,
		index:          indexService,
		exporter:       exporter,
	}, nil
}

// SearchService returns the search service.
func (a *App) SearchService() *service.SearchService { return a.search }

// IndexService returns the native index service.
func (a *App) IndexService() *service.IndexService { return a.index }

// Exporter returns the catalog exporter.
func (a *App) Exporter() *export.Exporter { return a.exporter }

// SearchClient returns the search service client.
func (a *App) SearchClient() *client.Client { return a.client }

// SeedDemoCatalog replaces the catalog with a generated one, drops cached
// feed pages and rebuilds the native index. It returns the indexed count.
func (a *App) SeedDemoCatalog(ctx context.Context, articles int, seed uint64) (int, error) {
	demo := postgres.NewDemoCatalog(a.cfg.ShopRootCategoryID, articles, seed)
	if err := postgres.SeedCatalog(ctx, a.pool, demo); err != nil {
		return 0, err
	}
	if err := a.feeds.InvalidateAll(ctx); err != nil {
		a.logger.WarnContext(ctx, "feed cache not invalidated", slog.String("error", err.Error()))
	}
	return a.index.Rebuild(ctx)
}

// Run starts the HTTP server and Kafka consumer, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := a.consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("kafka consumer: %w", err)
		}
	}()

	// The native engine starts empty after a restart.
	go func() {
		n, err := a.index.Reindex(ctx)
		if err != nil {
			a.logger.Error("initial reindex failed", slog.String("error", err.Error()))
			return
		}
		a.logger.Info("initial reindex completed", slog.Int("documents", n))
	}()

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.consumer.Close(); err != nil {
		a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	a.pool.Close()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Close releases connections without starting the server. The CLI uses it.
func (a *App) Close() error {
	var errs []error
	if err := a.consumer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.redis.Close(); err != nil {
		errs = append(errs, err)
	}
	a.pool.Close()
	if err := a.tracerShutdown(context.Background()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
