package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront-catalog/pkg/logger"
)

// StoreHeader optionally names the storefront a request is for.
const StoreHeader = "X-Store-ID"

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, store_id, trace_id and span_id. Mount it after
// RequestLogging and Tracing so those values are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if storeID := r.Header.Get(StoreHeader); storeID != "" && logger.StoreIDFromContext(ctx) == "" {
				ctx = logger.WithStoreID(ctx, storeID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
