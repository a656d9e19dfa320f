package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront-catalog/pkg/database"
	"github.com/utafrali/storefront-catalog/pkg/health"
	pkgkafka "github.com/utafrali/storefront-catalog/pkg/kafka"
	"github.com/utafrali/storefront-catalog/pkg/middleware"
	"github.com/utafrali/storefront-catalog/pkg/tracing"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/config"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/event"
	handler "github.com/utafrali/storefront-catalog/services/catalog/internal/handler/http"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
	redisrepo "github.com/utafrali/storefront-catalog/services/catalog/internal/repository/redis"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/service"
	"github.com/utafrali/storefront-catalog/services/catalog/migrations"
)

const (
	serviceName    = "catalog"
	processedTTL   = 24 * time.Hour
	consumerMaxMsg = 10e6 // 10 MB
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	stores         *Stores
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	stores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if stores.Pool != nil {
		database.RegisterPoolMetrics(stores.Pool, serviceName)

		if err := database.RunMigrations(ctx, stores.Pool, migrations.FS, logger); err != nil {
			stores.Close()
			return nil, err
		}
		logger.Info("database migrations completed")

		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		}
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		stores:         stores,
		tracerShutdown: tracerShutdown,
	}

	// Kafka is optional; without brokers the service neither publishes nor
	// consumes.
	var publisher service.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := a.producer.Ping(ctx); err != nil {
			logger.Warn("kafka producer ping failed, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = event.NewProducer(a.producer, logger)
	}

	// Build the service layer.
	resolver := location.NewResolver(stores.Locations)
	catalogService := service.NewCatalogService(stores.Catalog, resolver, publisher, service.CatalogConfig{
		MaxScan:            cfg.MaxScan,
		HotDealMinDiscount: cfg.HotDealMinDiscount,
	}, logger)
	cartService := service.NewCartService(stores.Catalog, resolver, publisher, logger)
	locationService := service.NewLocationService(resolver, logger)

	if a.producer != nil {
		a.consumers = a.buildConsumers(stores)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	if stores.Pool != nil {
		healthHandler.Register("postgres", func(ctx context.Context) error {
			return stores.Pool.Ping(ctx)
		})
	}
	if stores.Redis != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return stores.Redis.Ping(ctx).Err()
		})
	}
	if stores.Search != nil {
		healthHandler.Register("elasticsearch", stores.Search.Ping)
	}
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
	}

	// HTTP router.
	router := handler.NewRouter(handler.Services{
		Catalog:   catalogService,
		Cart:      cartService,
		Locations: locationService,
	}, healthHandler, handler.RouterConfig{
		CacheMaxAge: cfg.CacheMaxAgeSec,
		CORS:        middleware.DefaultCORSConfig(),
		RateLimiter: a.limiter,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// buildConsumers subscribes to the events that invalidate cached locations
// and keep the search index current.
func (a *App) buildConsumers(stores *Stores) []*pkgkafka.Consumer {
	var cache event.LocationCache
	if stores.Cache != nil {
		cache = stores.Cache
	}
	var indexer event.ProductIndexer
	if stores.Search != nil && stores.Source != nil {
		indexer = service.NewIndexService(stores.Source, stores.Search, a.logger)
	}

	eventConsumer := event.NewConsumer(cache, indexer, a.logger)
	topics := eventConsumer.Topics()
	if len(topics) == 0 {
		return nil
	}

	var processed pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(processedTTL)
	if stores.Redis != nil {
		processed = redisrepo.NewIdempotencyStore(stores.Redis, processedTTL)
	}
	handle := pkgkafka.IdempotentHandler(processed, eventConsumer.Handle, a.logger)
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))
	for _, topic := range topics {
		c := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  a.cfg.KafkaBrokers,
			GroupID:  a.cfg.KafkaGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: consumerMaxMsg,
		}, handle, a.logger).WithDeadLetter(a.dlq)
		consumers = append(consumers, c)
	}
	a.logger.Info("kafka consumers initialized",
		slog.Any("brokers", a.cfg.KafkaBrokers),
		slog.Any("topics", topics),
	)
	return consumers
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.limiter != nil {
		g.Go(func() error { return a.limiter.Run(gctx) })
	}

	for _, c := range a.consumers {
		g.Go(func() error {
			if err := c.Start(gctx); err != nil {
				return fmt.Errorf("kafka consumer: %w", err)
			}
			return nil
		})
	}

	<-gctx.Done()
	if ctx.Err() != nil {
		a.logger.Info("shutdown signal received")
	}

	shutdownErr := a.Shutdown()
	return errors.Join(g.Wait(), shutdownErr)
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

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.stores.Close()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
