package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront-catalog/pkg/database"
	"github.com/utafrali/storefront-catalog/pkg/httpclient"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/config"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/locationclient"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
	esrepo "github.com/utafrali/storefront-catalog/services/catalog/internal/repository/elasticsearch"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository/memory"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront-catalog/services/catalog/internal/repository/redis"
)

// Stores holds the data stores selected by configuration.
type Stores struct {
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	Search *esrepo.Store
	Memory *memory.Store

	// Catalog answers listing queries.
	Catalog repository.CatalogRepository
	// Source is the primary catalog the search index is built from. Nil
	// unless Search is set.
	Source repository.CatalogRepository

	Locations location.Lookup
	// Cache fronts Locations when Redis is reachable.
	Cache *redisrepo.LocationCache
}

// OpenStores connects the catalog and location backends named in cfg.
// An unreachable Redis only disables the location cache.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	s := &Stores{}

	if cfg.UsesPostgres() {
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
		if err != nil {
			return nil, err
		}
		s.Pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
	}

	if err := s.openCatalog(ctx, cfg, logger); err != nil {
		s.Close()
		return nil, err
	}
	s.openLocations(cfg, logger)

	if cfg.RedisAddr != "" {
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB
		client, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			logger.Warn("redis unavailable, location cache disabled",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			s.Redis = client
			s.Cache = redisrepo.NewLocationCache(client, s.Locations, cfg.LocationCacheTTL(), logger)
			s.Locations = s.Cache
			logger.Info("location cache enabled", slog.String("addr", cfg.RedisAddr))
		}
	}

	return s, nil
}

func (s *Stores) openCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.CatalogBackend {
	case config.BackendElasticsearch:
		store, err := esrepo.New(ctx, []string{cfg.ElasticsearchURL}, cfg.ElasticsearchIndex, logger)
		if err != nil {
			return fmt.Errorf("init elasticsearch catalog: %w", err)
		}
		s.Search = store
		s.Catalog = store
		s.Source = postgres.NewCatalogRepository(s.Pool)
		logger.Info("elasticsearch catalog initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
	case config.BackendMemory:
		s.Memory = memory.New()
		if cfg.SeedFile != "" {
			f, err := os.Open(cfg.SeedFile)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()
			if err := s.Memory.LoadSeed(f); err != nil {
				return fmt.Errorf("load seed file %s: %w", cfg.SeedFile, err)
			}
		}
		s.Catalog = s.Memory
		logger.Info("in-memory catalog initialized", slog.String("seed", cfg.SeedFile))
	default:
		s.Catalog = postgres.NewCatalogRepository(s.Pool)
	}
	return nil
}

func (s *Stores) openLocations(cfg *config.Config, logger *slog.Logger) {
	switch cfg.LocationBackend {
	case config.LocationRemote:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("location-service"),
			logger,
		)
		s.Locations = locationclient.New(client, cfg.LocationServiceURL, logger)
		logger.Info("remote location service configured", slog.String("url", cfg.LocationServiceURL))
	case config.LocationMemory:
		s.Locations = s.Memory
	default:
		s.Locations = postgres.NewLocationRepository(s.Pool)
	}
}

// Close releases every connection opened by OpenStores.
func (s *Stores) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
