package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront-catalog/pkg/health"
	"github.com/utafrali/storefront-catalog/pkg/logger"
	"github.com/utafrali/storefront-catalog/pkg/middleware"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/service"
)

const serviceName = "catalog"

// Services groups the services exposed over HTTP.
type Services struct {
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Locations *service.LocationService
}

// RouterConfig holds HTTP-level settings.
type RouterConfig struct {
	CacheMaxAge    int
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	// RateLimiter guards the store routes when set.
	RateLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all catalog service routes registered.
func NewRouter(svcs Services, healthHandler *health.Handler, cfg RouterConfig, log *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	catalogHandler := NewCatalogHandler(svcs.Catalog, log)
	cartHandler := NewCartHandler(svcs.Cart, log)
	locationHandler := NewLocationHandler(svcs.Locations, log)

	r.Route("/api/v1/stores/{storeId}", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler(log))
		}
		r.Use(storeContext(log))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.CacheMaxAge))
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/search", catalogHandler.Search)
			r.Get("/hot-deals", catalogHandler.HotDeals)
			r.Get("/locations/resolve", locationHandler.Resolve)
		})

		r.Post("/cart/reprice", cartHandler.Reprice)
	})

	return r
}

// storeContext tags the request logger with the store from the path.
func storeContext(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithStoreID(r.Context(), chi.URLParam(r, "storeId"))
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
