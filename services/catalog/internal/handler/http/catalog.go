package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront-catalog/pkg/httputil"
	"github.com/utafrali/storefront-catalog/pkg/pagination"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/service"
)

// CatalogHandler handles HTTP requests for product listings.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  logger,
	}
}

// ListingResponse is a page of resolved products with its location context.
type ListingResponse struct {
	httputil.PaginatedResponse[domain.ResolvedProduct]
	LocationGroupID string           `json:"location_group_id,omitempty"`
	Strategy        service.Strategy `json:"strategy"`
}

// ListProducts handles GET /api/v1/stores/{storeId}/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.QueryProducts(r.Context(), filterFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeListing(w, result)
}

// Search handles GET /api/v1/stores/{storeId}/search
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	f := filterFromRequest(r)
	f.Search = r.URL.Query().Get("q")

	result, err := h.service.SearchProducts(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeListing(w, result)
}

// HotDeals handles GET /api/v1/stores/{storeId}/hot-deals
func (h *CatalogHandler) HotDeals(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.HotDeals(r.Context(), filterFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeListing(w, result)
}

func writeListing(w http.ResponseWriter, result *service.QueryResult) {
	httputil.WriteJSON(w, http.StatusOK, ListingResponse{
		PaginatedResponse: httputil.NewPaginatedResponse(result.Items, result.TotalCount, result.Page, result.Limit),
		LocationGroupID:   result.LocationGroupID,
		Strategy:          result.Strategy,
	})
}

// filterFromRequest reads listing filters from the query string. Malformed
// values are dropped and pagination is clamped; nothing here fails a request.
func filterFromRequest(r *http.Request) domain.FilterQuery {
	q := r.URL.Query()
	page := pagination.FromRequest(r)

	f := domain.FilterQuery{
		StoreID:       chi.URLParam(r, "storeId"),
		CategoryID:    httputil.QueryString(r, "category_id"),
		SubCategoryID: httputil.QueryString(r, "sub_category_id"),
		BrandID:       httputil.QueryString(r, "brand_id"),
		ColorID:       httputil.QueryString(r, "color_id"),
		SizeID:        httputil.QueryString(r, "size_id"),
		PriceBand:     domain.ParsePriceBand(q.Get("price")),
		RatingFloor:   nonNegative(httputil.QueryFloat(r, "rating")),
		DiscountFloor: nonNegative(httputil.QueryFloat(r, "discount")),
		Pincode:       strings.TrimSpace(q.Get("pincode")),
		Page:          page.Page,
		Limit:         page.PerPage,
	}
	if id := httputil.QueryString(r, "location_group_id"); id != nil {
		f.LocationGroupID = *id
	}
	if sortBy := strings.TrimSpace(q.Get("sort_by")); sortBy != "" {
		f.SortBy = domain.ParseSortBy(sortBy)
	}
	return f
}

func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}
