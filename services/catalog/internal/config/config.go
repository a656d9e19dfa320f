package config

import (
	"fmt"
	"slices"
	"time"

	pkgconfig "github.com/utafrali/storefront-catalog/pkg/config"
	"github.com/utafrali/storefront-catalog/pkg/database"
)

// Catalog backends.
const (
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"
	BackendMemory        = "memory"
)

// Location backends.
const (
	LocationPostgres = "postgres"
	LocationRemote   = "remote"
	LocationMemory   = "memory"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int `env:"CATALOG_HTTP_PORT" envDefault:"8002"`
	CacheMaxAgeSec int `env:"CATALOG_CACHE_MAX_AGE_SECONDS" envDefault:"30"`

	// Per-client rate limit on /api routes; zero RPS disables it
	RateLimitRPS   float64 `env:"CATALOG_RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"CATALOG_RATE_LIMIT_BURST" envDefault:"100"`

	// Backend selection
	CatalogBackend  string `env:"CATALOG_BACKEND" envDefault:"postgres"`
	LocationBackend string `env:"LOCATION_BACKEND" envDefault:"postgres"`
	SeedFile        string `env:"CATALOG_SEED_FILE"`

	// Query engine
	MaxScan            int     `env:"CATALOG_MAX_SCAN" envDefault:"5000"`
	HotDealMinDiscount float64 `env:"CATALOG_HOT_DEAL_MIN_DISCOUNT" envDefault:"20"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"catalog"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis location cache; empty RedisAddr disables it
	RedisAddr           string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass           string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB             int    `env:"REDIS_DB" envDefault:"0"`
	LocationCacheTTLSec int    `env:"LOCATION_CACHE_TTL_SECONDS" envDefault:"300"`

	// Remote location service
	LocationServiceURL string `env:"LOCATION_SERVICE_URL" envDefault:"http://localhost:8012"`

	// Elasticsearch
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"storefront_catalog"`

	// Kafka; empty KafkaBrokers runs without events
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"CATALOG_KAFKA_GROUP_ID" envDefault:"catalog-service"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !slices.Contains([]string{BackendPostgres, BackendElasticsearch, BackendMemory}, c.CatalogBackend) {
		return fmt.Errorf("invalid CATALOG_BACKEND: %q", c.CatalogBackend)
	}
	if !slices.Contains([]string{LocationPostgres, LocationRemote, LocationMemory}, c.LocationBackend) {
		return fmt.Errorf("invalid LOCATION_BACKEND: %q", c.LocationBackend)
	}
	if c.LocationBackend == LocationRemote && c.LocationServiceURL == "" {
		return fmt.Errorf("LOCATION_SERVICE_URL is required for the remote location backend")
	}
	if (c.CatalogBackend == BackendMemory) != (c.LocationBackend == LocationMemory) {
		return fmt.Errorf("the memory backend must be used for both catalog and locations")
	}
	if c.MaxScan < 1 {
		return fmt.Errorf("CATALOG_MAX_SCAN must be positive, got %d", c.MaxScan)
	}
	if c.HotDealMinDiscount < 0 || c.HotDealMinDiscount > 100 {
		return fmt.Errorf("CATALOG_HOT_DEAL_MIN_DISCOUNT must be between 0 and 100, got %f", c.HotDealMinDiscount)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("CATALOG_RATE_LIMIT_RPS must not be negative, got %f", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("CATALOG_RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// UsesPostgres reports whether any backend needs the database. The
// Elasticsearch index is fed from the database, so it needs it too.
func (c *Config) UsesPostgres() bool {
	return c.CatalogBackend != BackendMemory || c.LocationBackend == LocationPostgres
}

// Postgres returns the connection settings for the catalog database.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// LocationCacheTTL returns the Redis TTL for location lookups.
func (c *Config) LocationCacheTTL() time.Duration {
	return time.Duration(c.LocationCacheTTLSec) * time.Second
}
