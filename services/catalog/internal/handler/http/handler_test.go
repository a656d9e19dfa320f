package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-catalog/pkg/health"
	"github.com/utafrali/storefront-catalog/pkg/middleware"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository/memory"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/service"
)

// ============================================================================
// Test Helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func seedEntry(id string, minutes int, prices ...domain.VariantPrice) domain.CatalogEntry {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
	return domain.CatalogEntry{
		Product: domain.Product{
			ID:         id,
			StoreID:    "s1",
			Name:       "Kurta " + id,
			CategoryID: strPtr("ethnic"),
			CreatedAt:  created,
		},
		Variants: []domain.Variant{{
			ID: id + "-v", ProductID: id, SKU: "SKU-" + id, IsActive: true, Prices: prices,
		}},
		Ratings: domain.ReviewSummary{AverageRating: 4, NumberOfRatings: 2},
	}
}

func setupRouter(t *testing.T, opts ...func(*RouterConfig)) http.Handler {
	t.Helper()

	store := memory.New()
	require.NoError(t, store.PutGroup(domain.LocationGroup{
		ID: "LG0", StoreID: "s1", Name: "Default", DeliveryDays: 5, IsDefault: true, Pincodes: []string{"110001"},
	}))
	require.NoError(t, store.PutGroup(domain.LocationGroup{
		ID: "LG1", StoreID: "s1", Name: "Bengaluru", DeliveryDays: 1, CODAvailable: true, Pincodes: []string{"560001"},
	}))
	entries := []domain.CatalogEntry{
		seedEntry("p1", 1,
			domain.VariantPrice{LocationGroupID: "LG0", Price: 90000, MRP: 100000},
			domain.VariantPrice{LocationGroupID: "LG1", Price: 50000, MRP: 70000},
		),
		seedEntry("p2", 2, domain.VariantPrice{LocationGroupID: "LG0", Price: 30000, MRP: 30000}),
		seedEntry("p3", 3, domain.VariantPrice{LocationGroupID: "LG1", Price: 20000, MRP: 40000}),
	}
	entries[0].Product.IsHotDeal = true
	entries[2].Product.IsHotDeal = true
	require.NoError(t, store.Index(context.Background(), entries))

	logger := testLogger()
	resolver := location.NewResolver(store)
	svcs := Services{
		Catalog:   service.NewCatalogService(store, resolver, nil, service.CatalogConfig{HotDealMinDiscount: 20}, logger),
		Cart:      service.NewCartService(store, resolver, nil, logger),
		Locations: service.NewLocationService(resolver, logger),
	}
	cfg := RouterConfig{
		CacheMaxAge: 60,
		CORS:        middleware.DefaultCORSConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewRouter(svcs, health.NewHandler(), cfg, logger)
}

type listingBody struct {
	Data            []domain.ResolvedProduct `json:"data"`
	TotalCount      int                      `json:"total_count"`
	Page            int                      `json:"page"`
	PerPage         int                      `json:"per_page"`
	TotalPages      int                      `json:"total_pages"`
	HasNext         bool                     `json:"has_next"`
	LocationGroupID string                   `json:"location_group_id"`
	Strategy        string                   `json:"strategy"`
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

// ============================================================================
// Listings
// ============================================================================

func TestListProducts_DefaultContext(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/products?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get(middleware.CorrelationHeader))

	var body listingBody
	decodeJSON(t, rec, &body)
	assert.Equal(t, 3, body.TotalCount)
	assert.Equal(t, 2, body.PerPage)
	assert.Equal(t, 2, body.TotalPages)
	assert.True(t, body.HasNext)
	assert.Equal(t, "LG0", body.LocationGroupID)
	assert.Equal(t, "pushdown", body.Strategy)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "p3", body.Data[0].Product.ID)
	assert.Equal(t, "p2", body.Data[1].Product.ID)
}

func TestListProducts_PincodePricesForItsGroup(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/products?pincode=560001&sort_by=price_asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body listingBody
	decodeJSON(t, rec, &body)
	assert.Equal(t, "LG1", body.LocationGroupID)
	assert.Equal(t, "full_scan", body.Strategy)
	require.Len(t, body.Data, 3)
	assert.Equal(t, "p3", body.Data[0].Product.ID)
	assert.Equal(t, int64(20000), body.Data[0].Price.Price)
	assert.Equal(t, "p2", body.Data[1].Product.ID)
	assert.Equal(t, int64(30000), body.Data[1].Price.Price)
	assert.Equal(t, "p1", body.Data[2].Product.ID)
	assert.Equal(t, int64(50000), body.Data[2].Price.Price)
	assert.Equal(t, 29, body.Data[2].DiscountPercent)
}

func TestListProducts_MalformedFiltersAreIgnored(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/products?rating=abc&price=9-1&page=-3&limit=x", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body listingBody
	decodeJSON(t, rec, &body)
	assert.Equal(t, 3, body.TotalCount)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 12, body.PerPage)
}

func TestListProducts_UnknownStoreIsEmpty(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/nope/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body listingBody
	decodeJSON(t, rec, &body)
	assert.Equal(t, 0, body.TotalCount)
	assert.NotNil(t, body.Data)
	assert.Empty(t, body.LocationGroupID)
}

func TestSearch(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/search?q=KURTA+p2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body listingBody
	decodeJSON(t, rec, &body)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "p2", body.Data[0].Product.ID)
}

func TestSearch_EmptyQuery(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/search?q=%20", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body errorBody
	decodeJSON(t, rec, &body)
	assert.Equal(t, "INVALID_INPUT", body.Error.Code)
}

func TestHotDeals(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/hot-deals?pincode=560001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body listingBody
	decodeJSON(t, rec, &body)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "p3", body.Data[0].Product.ID)
	assert.Equal(t, 50, body.Data[0].DiscountPercent)
	assert.Equal(t, "p1", body.Data[1].Product.ID)
}

func TestFilterFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/?category_id=ethnic&brand_id=%20&color_id=red&price=100-500&rating=3.5&discount=-2&pincode=%20560001%20&location_group_id=LG1&sort_by=RATING_DESC&page=2&limit=5", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("storeId", "s1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	f := filterFromRequest(req)

	assert.Equal(t, "s1", f.StoreID)
	require.NotNil(t, f.CategoryID)
	assert.Equal(t, "ethnic", *f.CategoryID)
	assert.Nil(t, f.BrandID)
	require.NotNil(t, f.ColorID)
	assert.Equal(t, "red", *f.ColorID)
	require.NotNil(t, f.PriceBand)
	assert.Equal(t, int64(100), f.PriceBand.Min)
	require.NotNil(t, f.RatingFloor)
	assert.Equal(t, 3.5, *f.RatingFloor)
	assert.Nil(t, f.DiscountFloor)
	assert.Equal(t, "560001", f.Pincode)
	assert.Equal(t, "LG1", f.LocationGroupID)
	assert.Equal(t, domain.SortRatingDesc, f.SortBy)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 5, f.Limit)
}

func TestFilterFromRequest_NoSortLeavesDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	f := filterFromRequest(req)

	assert.Equal(t, domain.SortBy(""), f.SortBy)
	assert.Nil(t, f.PriceBand)
}

// ============================================================================
// Cart
// ============================================================================

func TestReprice(t *testing.T) {
	router := setupRouter(t)

	body := []byte(`{"pincode":"560001","lines":[{"variant_id":"p1-v","quantity":2},{"variant_id":"p2-v","quantity":1}]}`)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/stores/s1/cart/reprice", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Cache-Control"))

	var resp struct {
		Data domain.RepriceResult `json:"data"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "LG1", resp.Data.LocationGroupID)
	require.Len(t, resp.Data.Lines, 2)
	assert.Equal(t, int64(100000), resp.Data.Lines[0].LineTotal)
	assert.True(t, resp.Data.Lines[1].Available)
	assert.Equal(t, int64(30000), resp.Data.Lines[1].UnitPrice)
	assert.Equal(t, int64(130000), resp.Data.Subtotal)
}

func TestReprice_ValidationErrors(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing pincode", `{"lines":[{"variant_id":"p1-v","quantity":1}]}`, "pincode"},
		{"malformed pincode", `{"pincode":"56A001","lines":[{"variant_id":"p1-v","quantity":1}]}`, "pincode"},
		{"no lines", `{"pincode":"560001","lines":[]}`, "lines"},
		{"zero quantity", `{"pincode":"560001","lines":[{"variant_id":"p1-v","quantity":0}]}`, "lines[0].quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/stores/s1/cart/reprice", []byte(tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body errorBody
			decodeJSON(t, rec, &body)
			assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
			assert.Contains(t, body.Error.Fields, tt.field)
		})
	}
}

func TestReprice_MalformedJSON(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/stores/s1/cart/reprice", []byte(`{"pincode":`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	decodeJSON(t, rec, &body)
	assert.Equal(t, "INVALID_INPUT", body.Error.Code)
}

func TestReprice_UnservedPincode(t *testing.T) {
	router := setupRouter(t)

	body := []byte(`{"pincode":"999999","lines":[{"variant_id":"p1-v","quantity":1}]}`)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/stores/s1/cart/reprice", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorBody
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "INVALID_PINCODE", resp.Error.Code)
}

func TestReprice_BodyTooLarge(t *testing.T) {
	router := setupRouter(t)

	big := `{"pincode":"560001","lines":[{"variant_id":"` + strings.Repeat("x", 1<<20) + `","quantity":1}]}`
	rec := doRequest(t, router, http.MethodPost, "/api/v1/stores/s1/cart/reprice", []byte(big))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// Locations and health
// ============================================================================

func TestResolveLocation(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/locations/resolve?pincode=560001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.LocationGroup `json:"data"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "LG1", resp.Data.ID)
	assert.Equal(t, 1, resp.Data.DeliveryDays)
	assert.True(t, resp.Data.CODAvailable)
}

func TestResolveLocation_NotServed(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/locations/resolve?pincode=400001", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	decodeJSON(t, rec, &body)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	router := setupRouter(t)

	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/health/ready", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/metrics", nil).Code)
}

func TestStoreRoutesAreRateLimited(t *testing.T) {
	router := setupRouter(t, func(cfg *RouterConfig) {
		cfg.RateLimiter = middleware.NewRateLimiter(0.001, 2, time.Minute)
	})

	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/products", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/hot-deals", nil).Code)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stores/s1/search?q=kurta", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/health/ready", nil).Code)
}
