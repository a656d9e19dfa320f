package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	apperrors "github.com/utafrali/storefront-catalog/pkg/errors"
	"github.com/utafrali/storefront-catalog/pkg/pagination"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/pricing"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
)

// Strategy names how a listing page was cut.
type Strategy string

const (
	// StrategyPushdown lets the data store paginate.
	StrategyPushdown Strategy = "pushdown"
	// StrategyFullScan fetches every candidate and paginates in memory.
	StrategyFullScan Strategy = "full_scan"
)

// DefaultMaxScan bounds the candidates fetched by a full scan.
const DefaultMaxScan = 5000

// CatalogConfig tunes the listing engine.
type CatalogConfig struct {
	MaxScan            int
	HotDealMinDiscount float64
}

// QueryResult is one page of a listing.
type QueryResult struct {
	Items           []domain.ResolvedProduct `json:"items"`
	TotalCount      int                      `json:"total_count"`
	Page            int                      `json:"page"`
	Limit           int                      `json:"limit"`
	LocationGroupID string                   `json:"location_group_id,omitempty"`
	Strategy        Strategy                 `json:"strategy"`
}

// CatalogService answers location-aware product listings.
type CatalogService struct {
	repo      repository.CatalogRepository
	resolver  *location.Resolver
	publisher EventPublisher
	cfg       CatalogConfig
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service. publisher may be nil.
func NewCatalogService(
	repo repository.CatalogRepository,
	resolver *location.Resolver,
	publisher EventPublisher,
	cfg CatalogConfig,
	logger *slog.Logger,
) *CatalogService {
	if cfg.MaxScan <= 0 {
		cfg.MaxScan = DefaultMaxScan
	}
	return &CatalogService{
		repo:      repo,
		resolver:  resolver,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// QueryProducts runs a listing. The page is cut by the store when every
// filter can be pushed down, otherwise after resolving prices in memory.
func (s *CatalogService) QueryProducts(ctx context.Context, f domain.FilterQuery) (*QueryResult, error) {
	params := pagination.Normalize(f.Page, f.Limit)

	res, err := s.resolver.ResolveForListing(ctx, f.StoreID, f.LocationGroupID, f.Pincode)
	if err != nil {
		return nil, fmt.Errorf("resolve location: %w", err)
	}
	locationResolutionsTotal.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome == location.OutcomeFallback {
		s.pincodeUnresolved(ctx, f.StoreID, f.Pincode)
	}

	plan := query.Build(f, res.GroupID())
	result := &QueryResult{
		Page:            params.Page,
		Limit:           params.PerPage,
		LocationGroupID: res.GroupID(),
	}

	if plan.RequiresFullScan {
		result.Strategy = StrategyFullScan
		result.Items, result.TotalCount, err = s.fullScan(ctx, plan, res, params)
	} else {
		result.Strategy = StrategyPushdown
		result.Items, result.TotalCount, err = s.pushdown(ctx, plan, res, params)
	}
	if err != nil {
		return nil, err
	}
	queriesTotal.WithLabelValues(string(result.Strategy)).Inc()

	s.logger.DebugContext(ctx, "catalog query executed",
		slog.String("store_id", f.StoreID),
		slog.String("location_group_id", result.LocationGroupID),
		slog.String("strategy", string(result.Strategy)),
		slog.String("predicate", plan.Store.String()),
		slog.Int("total", result.TotalCount),
	)
	return result, nil
}

// SearchProducts is a listing restricted by a text query, which must not be
// empty.
func (s *CatalogService) SearchProducts(ctx context.Context, f domain.FilterQuery) (*QueryResult, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.Search == "" {
		return nil, apperrors.InvalidInput("search query must not be empty")
	}
	return s.QueryProducts(ctx, f)
}

// HotDeals is a listing of hot-deal products, by default at least the
// configured discount and ordered by discount.
func (s *CatalogService) HotDeals(ctx context.Context, f domain.FilterQuery) (*QueryResult, error) {
	f.HotDealsOnly = true
	if f.DiscountFloor == nil && s.cfg.HotDealMinDiscount > 0 {
		floor := s.cfg.HotDealMinDiscount
		f.DiscountFloor = &floor
	}
	if f.SortBy == "" {
		f.SortBy = domain.SortDiscountDesc
	}
	return s.QueryProducts(ctx, f)
}

func (s *CatalogService) pushdown(ctx context.Context, plan query.Plan, res location.Resolution, params pagination.Params) ([]domain.ResolvedProduct, int, error) {
	entries, total, err := s.repo.Find(ctx, repository.FindParams{
		Predicate: plan.Store,
		Sort:      plan.StoreSort(),
		Offset:    params.Offset,
		Limit:     params.PerPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}

	items := make([]domain.ResolvedProduct, 0, len(entries))
	for i := range entries {
		items = append(items, resolveEntry(&entries[i], plan, res))
	}
	return items, total, nil
}

func (s *CatalogService) fullScan(ctx context.Context, plan query.Plan, res location.Resolution, params pagination.Params) ([]domain.ResolvedProduct, int, error) {
	entries, total, err := s.repo.Find(ctx, repository.FindParams{
		Predicate: plan.Store,
		Sort:      plan.StoreSort(),
		Limit:     s.cfg.MaxScan,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("find candidates: %w", err)
	}
	fullScanCandidates.Observe(float64(len(entries)))
	if total > len(entries) {
		s.logger.WarnContext(ctx, "full scan truncated",
			slog.Int("candidates", total),
			slog.Int("max_scan", s.cfg.MaxScan),
		)
	}

	matched := make([]domain.ResolvedProduct, 0, len(entries))
	for i := range entries {
		rp := resolveEntry(&entries[i], plan, res)
		if plan.PostFetch == nil || plan.PostFetch(rp) {
			matched = append(matched, rp)
		}
	}

	if plan.Sort.IsDerived() {
		slices.SortStableFunc(matched, derivedOrder(plan.Sort))
	}
	return pagination.Window(matched, params), len(matched), nil
}

func resolveEntry(e *domain.CatalogEntry, plan query.Plan, res location.Resolution) domain.ResolvedProduct {
	var match func(*domain.Variant) bool
	if plan.VariantMatch != nil {
		match = func(v *domain.Variant) bool { return query.MatchVariant(plan.VariantMatch, e, v) }
	}
	return pricing.Resolve(e, match, res.GroupID(), res.DefaultGroupID)
}

// derivedOrder compares listing rows by a resolved value. Unavailable rows
// sort after available ones for price orders; ties fall back to product ID.
func derivedOrder(sortBy domain.SortBy) func(a, b domain.ResolvedProduct) int {
	return func(a, b domain.ResolvedProduct) int {
		var c int
		switch sortBy {
		case domain.SortPriceAsc:
			c = cmp.Or(
				cmp.Compare(unavailable(a), unavailable(b)),
				cmp.Compare(a.Price.Price, b.Price.Price),
			)
		case domain.SortPriceDesc:
			c = cmp.Or(
				cmp.Compare(unavailable(a), unavailable(b)),
				cmp.Compare(b.Price.Price, a.Price.Price),
			)
		case domain.SortDiscountDesc:
			c = cmp.Compare(b.DiscountPercent, a.DiscountPercent)
		case domain.SortRatingDesc:
			c = cmp.Or(
				cmp.Compare(b.MeanRating, a.MeanRating),
				cmp.Compare(b.NumberOfRatings, a.NumberOfRatings),
			)
		}
		return cmp.Or(c, strings.Compare(a.Product.ID, b.Product.ID))
	}
}

func unavailable(rp domain.ResolvedProduct) int {
	if rp.Price.Available() {
		return 0
	}
	return 1
}

func (s *CatalogService) pincodeUnresolved(ctx context.Context, storeID, pincode string) {
	s.logger.InfoContext(ctx, "pincode not served, using default group",
		slog.String("store_id", storeID),
		slog.String("pincode", pincode),
	)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPincodeUnresolved(ctx, storeID, pincode); err != nil {
		s.logger.WarnContext(ctx, "failed to publish pincode unresolved event",
			slog.String("store_id", storeID),
			slog.String("error", err.Error()),
		)
	}
}
