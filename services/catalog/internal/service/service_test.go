package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront-catalog/pkg/errors"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository/memory"
)

// ============================================================================
// Mocks
// ============================================================================

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCartRepriced(ctx context.Context, result *domain.RepriceResult) error {
	return m.Called(ctx, result).Error(0)
}

func (m *mockPublisher) PublishPincodeUnresolved(ctx context.Context, storeID, pincode string) error {
	return m.Called(ctx, storeID, pincode).Error(0)
}

type mockCatalogRepo struct {
	mock.Mock
}

func (m *mockCatalogRepo) Find(ctx context.Context, params repository.FindParams) ([]domain.CatalogEntry, int, error) {
	args := m.Called(ctx, params)
	entries, _ := args.Get(0).([]domain.CatalogEntry)
	return entries, args.Int(1), args.Error(2)
}

// ============================================================================
// Fixtures
// ============================================================================

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func price(group string, p, mrp int64) domain.VariantPrice {
	return domain.VariantPrice{LocationGroupID: group, Price: p, MRP: mrp}
}

// entry builds a product in category C1 with one active variant. Higher n is
// newer.
func entry(id string, n int, rating float64, prices ...domain.VariantPrice) domain.CatalogEntry {
	return domain.CatalogEntry{
		Product: domain.Product{
			ID:         id,
			StoreID:    "s1",
			Name:       "Product " + id,
			CategoryID: strPtr("C1"),
			CreatedAt:  base.Add(time.Duration(n) * time.Minute),
		},
		Variants: []domain.Variant{{
			ID: id + "-v", ProductID: id, SKU: "SKU-" + id, IsActive: true, Prices: prices,
		}},
		Ratings: domain.ReviewSummary{AverageRating: rating, NumberOfRatings: 3},
	}
}

type fixture struct {
	store     *memory.Store
	publisher *mockPublisher
	catalog   *CatalogService
	cart      *CartService
	locations *LocationService
}

func newFixture(t *testing.T, cfg CatalogConfig, entries ...domain.CatalogEntry) *fixture {
	t.Helper()
	store := memory.New()
	for _, g := range []domain.LocationGroup{
		{ID: "LG0", StoreID: "s1", Name: "Rest of India", DeliveryDays: 5, IsDefault: true, Pincodes: []string{"110001"}},
		{ID: "LG1", StoreID: "s1", Name: "Bengaluru", DeliveryDays: 1, CODAvailable: true, Pincodes: []string{"560001"}},
		{ID: "LG9", StoreID: "s1", Name: "Mumbai", DeliveryDays: 2, Pincodes: []string{"400001"}},
	} {
		require.NoError(t, store.PutGroup(g))
	}
	require.NoError(t, store.Index(context.Background(), entries))

	pub := &mockPublisher{}
	pub.On("PublishPincodeUnresolved", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	pub.On("PublishCartRepriced", mock.Anything, mock.Anything).Return(nil).Maybe()

	resolver := location.NewResolver(store)
	return &fixture{
		store:     store,
		publisher: pub,
		catalog:   NewCatalogService(store, resolver, pub, cfg, testLogger()),
		cart:      NewCartService(store, resolver, pub, testLogger()),
		locations: NewLocationService(resolver, testLogger()),
	}
}

func productIDs(items []domain.ResolvedProduct) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Product.ID
	}
	return out
}

// ============================================================================
// QueryProducts
// ============================================================================

func TestQueryProducts_RatingFloorCountsFilteredSet(t *testing.T) {
	var entries []domain.CatalogEntry
	for i := 0; i < 15; i++ {
		rating := 3.0
		if i < 6 {
			rating = 4.0 + 0.1*float64(i)
		}
		entries = append(entries, entry(fmt.Sprintf("p%02d", i), i, rating, price("LG0", 100, 100)))
	}
	f := newFixture(t, CatalogConfig{}, entries...)

	res, err := f.catalog.QueryProducts(context.Background(), domain.FilterQuery{
		StoreID:     "s1",
		CategoryID:  strPtr("C1"),
		RatingFloor: floatPtr(4),
		Limit:       10,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, res.TotalCount)
	assert.Len(t, res.Items, 6)
	assert.Equal(t, StrategyFullScan, res.Strategy)
	for _, it := range res.Items {
		assert.GreaterOrEqual(t, it.AverageRating, 4.0)
	}
}

func TestQueryProducts_RatingFloorUsesUnroundedMean(t *testing.T) {
	nearly := make([]int, 0, 20)
	for range 19 {
		nearly = append(nearly, 4)
	}
	nearly = append(nearly, 3)

	below := entry("p1", 1, 0, price("LG0", 100, 100))
	below.Ratings = domain.SummarizeRatings(nearly)
	exact := entry("p2", 2, 0, price("LG0", 100, 100))
	exact.Ratings = domain.SummarizeRatings([]int{4, 4})
	f := newFixture(t, CatalogConfig{}, below, exact)

	res, err := f.catalog.QueryProducts(context.Background(), domain.FilterQuery{
		StoreID:     "s1",
		RatingFloor: floatPtr(4),
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "p2", res.Items[0].Product.ID)
}

func TestQueryProducts_ResolvedGroupPriceWins(t *testing.T) {
	f := newFixture(t, CatalogConfig{}, entry("p1", 1, 0, price("LG1", 500, 700), price("LG0", 450, 600)))

	res, err := f.catalog.QueryProducts(context.Background(), domain.FilterQuery{StoreID: "s1", Pincode: "560001"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	assert.Equal(t, "LG1", res.LocationGroupID)
	assert.Equal(t, int64(500), res.Items[0].Price.Price)
	assert.Equal(t, int64(700), res.Items[0].Price.MRP)
	assert.Equal(t, domain.TierResolvedGroup, res.Items[0].Price.Tier)
	assert.Equal(t, 29, res.Items[0].DiscountPercent)
}

func TestQueryProducts_UnresolvedPincodeFallsBackToAnyPositivePrice(t *testing.T) {
	f := newFixture(t, CatalogConfig{}, entry("p1", 1, 0, price("LG0", 0, 0), price("LG9", 800, 1000)))

	res, err := f.catalog.QueryProducts(context.Background(), domain.FilterQuery{StoreID: "s1", Pincode: "999999"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	assert.Equal(t, "LG0", res.LocationGroupID)
	assert.Equal(t, int64(800), res.Items[0].Price.Price)
	assert.Equal(t, "LG9", res.Items[0].Price.LocationGroupID)
	assert.Equal(t, domain.TierAnyGroup, res.Items[0].Price.Tier)
	f.publisher.AssertCalled(t, "PublishPincodeUnresolved", mock.Anything, "s1", "999999")
}

func TestQueryProducts_PublishFailureIsIgnored(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Index(context.Background(), []domain.CatalogEntry{entry("p1", 1, 0, price("LG1", 100, 100))}))
	pub := &mockPublisher{}
	pub.On("PublishPincodeUnresolved", mock.Anything, "s1", "999999").Return(errors.New("kafka down"))
	svc := NewCatalogService(store, location.NewResolver(store), pub, CatalogConfig{}, testLogger())

	res, err := svc.QueryProducts(context.Background(), domain.FilterQuery{StoreID: "s1", Pincode: "999999"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)
	assert.Empty(t, res.LocationGroupID)
	pub.AssertExpectations(t)
}

func TestQueryProducts_PushableOnlyUsesStoreCount(t *testing.T) {
	var entries []domain.CatalogEntry
	for i := 0; i < 15; i++ {
		e := entry(fmt.Sprintf("p%02d", i), i, 0, price("LG0", 100, 100))
		e.Product.IsArchived = i%5 == 0
		entries = append(entries, e)
	}
	f := newFixture(t, CatalogConfig{}, entries...)

	res, err := f.catalog.QueryProducts(context.Background(), domain.FilterQuery{
		StoreID:    "s1",
		CategoryID: strPtr("C1"),
		Page:       2,
		Limit:      5,
	})
	require.NoError(t, err)

	assert.Equal(t, StrategyPushdown, res.Strategy)
	assert.Equal(t, 12, res.TotalCount)
	assert.Len(t, res.Items, 5)
	assert.Equal(t, 2, res.Page)
	for _, it := range res.Items {
		assert.False(t, it.Product.IsArchived)
	}
}

func TestQueryProducts_ClampsPagination(t *testing.T) {
	f := newFixture(t, CatalogConfig{}, entry("p1", 1, 0))

	res, err := f.catalog.QueryProducts(context.Background(), domain.FilterQuery{StoreID: "s1", Page: -3, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 12, res.Limit)
}

func TestQueryProducts_HugePageIsEmptyNotFirstPage(t *testing.T) {
	f := newFixture(t, CatalogConfig{}, entry("p1", 1, 4.5, price("LG0", 100, 100)))

	for _, tc := range []struct {
		name     string
		filter   domain.FilterQuery
		strategy Strategy
	}{
		{"pushdown", domain.FilterQuery{StoreID: "s1"}, StrategyPushdown},
		{"full scan", domain.FilterQuery{StoreID: "s1", RatingFloor: floatPtr(1)}, StrategyFullScan},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tc.filter.Page = math.MaxInt
			tc.filter.Limit = 12

			res, err := f.catalog.QueryProducts(context.Background(), tc.filter)
			require.NoError(t, err)

			assert.Equal(t, tc.strategy, res.Strategy)
			assert.Empty(t, res.Items)
			assert.Equal(t, 1, res.TotalCount)
			assert.Equal(t, math.MaxInt/12, res.Page)
		})
	}
}

func TestQueryProducts_PagesConcatenateAndRepeat(t *testing.T) {
	var entries []domain.CatalogEntry
	for i := 0; i < 15; i++ {
		entries = append(entries, entry(fmt.Sprintf("p%02d", i), i, float64(i%5), price("LG0", int64(100+(i*37)%120), 300)))
	}
	f := newFixture(t, CatalogConfig{}, entries...)
	ctx := context.Background()

	for _, tc := range []struct {
		name     string
		filter   domain.FilterQuery
		strategy Strategy
	}{
		{"pushdown", domain.FilterQuery{StoreID: "s1"}, StrategyPushdown},
		{"full scan", domain.FilterQuery{StoreID: "s1", RatingFloor: floatPtr(2), SortBy: domain.SortPriceAsc}, StrategyFullScan},
	} {
		t.Run(tc.name, func(t *testing.T) {
			all := tc.filter
			all.Limit = 100
			whole, err := f.catalog.QueryProducts(ctx, all)
			require.NoError(t, err)
			assert.Equal(t, tc.strategy, whole.Strategy)

			var pages []string
			for page := 1; page <= (whole.TotalCount+3)/4; page++ {
				q := tc.filter
				q.Page, q.Limit = page, 4

				first, err := f.catalog.QueryProducts(ctx, q)
				require.NoError(t, err)
				again, err := f.catalog.QueryProducts(ctx, q)
				require.NoError(t, err)

				assert.Equal(t, first, again)
				assert.Equal(t, whole.TotalCount, first.TotalCount)
				pages = append(pages, productIDs(first.Items)...)
			}
			assert.Equal(t, productIDs(whole.Items), pages)
		})
	}
}

func TestQueryProducts_DerivedPriceSortPutsUnavailableLast(t *testing.T) {
	f := newFixture(t, CatalogConfig{},
		entry("a", 1, 0, price("LG0", 300, 300)),
		entry("b", 2, 0),
		entry("c", 3, 0, price("LG0", 100, 100)),
		entry("d", 4, 0, price("LG0", 100, 100)),
	)
	ctx := context.Background()

	asc, err := f.catalog.QueryProducts(ctx, domain.FilterQuery{StoreID: "s1", SortBy: domain.SortPriceAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "a", "b"}, productIDs(asc.Items))

	desc, err := f.catalog.QueryProducts(ctx, domain.FilterQuery{StoreID: "s1", SortBy: domain.SortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d", "b"}, productIDs(desc.Items))
}

func TestQueryProducts_VariantFiltersMatchOneVariant(t *testing.T) {
	e := entry("p1", 1, 0)
	e.Variants = []domain.Variant{
		{ID: "red-s", ProductID: "p1", ColorID: strPtr("red"), SizeID: strPtr("S"), IsActive: true, Prices: []domain.VariantPrice{price("LG0", 100, 100)}},
		{ID: "blue-m", ProductID: "p1", ColorID: strPtr("blue"), SizeID: strPtr("M"), IsActive: true, Prices: []domain.VariantPrice{price("LG0", 900, 1000)}},
	}
	f := newFixture(t, CatalogConfig{}, e)
	ctx := context.Background()

	res, err := f.catalog.QueryProducts(ctx, domain.FilterQuery{StoreID: "s1", ColorID: strPtr("red"), SizeID: strPtr("M")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalCount)
	assert.Empty(t, res.Items)

	res, err = f.catalog.QueryProducts(ctx, domain.FilterQuery{StoreID: "s1", ColorID: strPtr("blue")})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "blue-m", res.Items[0].Variant.ID)
	assert.Equal(t, int64(900), res.Items[0].Price.Price)
}

func TestQueryProducts_PriceBandUsesResolvedGroup(t *testing.T) {
	f := newFixture(t, CatalogConfig{},
		entry("cheap-here", 1, 0, price("LG1", 200, 200), price("LG0", 900, 900)),
		entry("cheap-elsewhere", 2, 0, price("LG1", 900, 900), price("LG0", 200, 200)),
	)

	res, err := f.catalog.QueryProducts(context.Background(), domain.FilterQuery{
		StoreID:   "s1",
		Pincode:   "560001",
		PriceBand: domain.ParsePriceBand("100-500"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cheap-here"}, productIDs(res.Items))
}

func TestQueryProducts_FullScanIsBoundedByMaxScan(t *testing.T) {
	var entries []domain.CatalogEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, entry(fmt.Sprintf("p%d", i), i, 5, price("LG0", 100, 100)))
	}
	f := newFixture(t, CatalogConfig{MaxScan: 2}, entries...)
	countBefore, sumBefore := fullScanSnapshot(t)

	res, err := f.catalog.QueryProducts(context.Background(), domain.FilterQuery{StoreID: "s1", RatingFloor: floatPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, []string{"p4", "p3"}, productIDs(res.Items))

	count, sum := fullScanSnapshot(t)
	assert.Equal(t, countBefore+1, count)
	assert.Equal(t, sumBefore+2, sum)
}

func fullScanSnapshot(t *testing.T) (uint64, float64) {
	t.Helper()
	var m dto.Metric
	require.NoError(t, fullScanCandidates.Write(&m))
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestQueryProducts_StoreErrorPropagates(t *testing.T) {
	repo := &mockCatalogRepo{}
	repo.On("Find", mock.Anything, mock.Anything).Return(nil, 0, errors.New("connection refused"))
	store := memory.New()
	svc := NewCatalogService(repo, location.NewResolver(store), nil, CatalogConfig{}, testLogger())

	_, err := svc.QueryProducts(context.Background(), domain.FilterQuery{StoreID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// ============================================================================
// SearchProducts / HotDeals
// ============================================================================

func TestSearchProducts(t *testing.T) {
	kurta := entry("k", 1, 0, price("LG0", 100, 100))
	kurta.Product.Name = "Cotton Kurta"
	f := newFixture(t, CatalogConfig{}, kurta, entry("x", 2, 0, price("LG0", 100, 100)))
	ctx := context.Background()

	_, err := f.catalog.SearchProducts(ctx, domain.FilterQuery{StoreID: "s1", Search: "   "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	res, err := f.catalog.SearchProducts(ctx, domain.FilterQuery{StoreID: "s1", Search: "KURTA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, productIDs(res.Items))
}

func TestHotDeals_DefaultFloorAndOrder(t *testing.T) {
	hot := func(id string, p int64) domain.CatalogEntry {
		e := entry(id, 1, 0, price("LG0", p, 1000))
		e.Product.IsHotDeal = true
		return e
	}
	f := newFixture(t, CatalogConfig{HotDealMinDiscount: 10},
		hot("h20", 800),
		hot("h5", 950),
		hot("h50", 500),
		entry("n60", 1, 0, price("LG0", 400, 1000)),
	)
	ctx := context.Background()

	res, err := f.catalog.HotDeals(ctx, domain.FilterQuery{StoreID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"h50", "h20"}, productIDs(res.Items))
	assert.Equal(t, StrategyFullScan, res.Strategy)

	res, err = f.catalog.HotDeals(ctx, domain.FilterQuery{StoreID: "s1", DiscountFloor: floatPtr(0), SortBy: domain.SortNewest})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
}

// ============================================================================
// CartService
// ============================================================================

func TestReprice(t *testing.T) {
	archived := entry("p2", 2, 0, price("LG1", 100, 100))
	archived.Product.IsArchived = true
	f := newFixture(t, CatalogConfig{},
		entry("p1", 1, 0, price("LG1", 500, 700), price("LG0", 450, 600)),
		archived,
		entry("p3", 3, 0, price("LG1", 0, 0)),
	)

	res, err := f.cart.Reprice(context.Background(), RepriceInput{
		StoreID: "s1",
		Pincode: "560001",
		Lines: []domain.CartLine{
			{VariantID: "p1-v", Quantity: 2},
			{VariantID: "p2-v", Quantity: 1},
			{VariantID: "p3-v", Quantity: 1},
			{VariantID: "missing", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "LG1", res.LocationGroupID)
	assert.Equal(t, 1, res.DeliveryDays)
	assert.True(t, res.CODAvailable)
	require.Len(t, res.Lines, 4)

	first := res.Lines[0]
	assert.True(t, first.Available)
	assert.Equal(t, "p1", first.ProductID)
	assert.Equal(t, "SKU-p1", first.SKU)
	assert.Equal(t, int64(1000), first.LineTotal)
	assert.Equal(t, int64(1400), first.LineMRP)
	assert.Equal(t, 29, first.DiscountPercent)

	assert.Equal(t, domain.UnavailableArchived, res.Lines[1].UnavailableReason)
	assert.Equal(t, domain.UnavailableNoPrice, res.Lines[2].UnavailableReason)
	assert.Equal(t, domain.UnavailableNotFound, res.Lines[3].UnavailableReason)

	assert.Equal(t, int64(1000), res.Subtotal)
	assert.Equal(t, int64(1400), res.MRPTotal)
	assert.Equal(t, int64(400), res.Savings)
	assert.False(t, res.AllAvailable)
	f.publisher.AssertCalled(t, "PublishCartRepriced", mock.Anything, res)
}

func TestReprice_UnservedPincodeIsInvalid(t *testing.T) {
	f := newFixture(t, CatalogConfig{}, entry("p1", 1, 0, price("LG1", 500, 700)))

	_, err := f.cart.Reprice(context.Background(), RepriceInput{
		StoreID: "s1",
		Pincode: "999999",
		Lines:   []domain.CartLine{{VariantID: "p1-v", Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPincode)
	f.publisher.AssertNotCalled(t, "PublishCartRepriced", mock.Anything, mock.Anything)
}

func TestReprice_FallsBackToDefaultGroupPrice(t *testing.T) {
	f := newFixture(t, CatalogConfig{}, entry("p1", 1, 0, price("LG0", 450, 600)))

	res, err := f.cart.Reprice(context.Background(), RepriceInput{
		StoreID: "s1",
		Pincode: "400001",
		Lines:   []domain.CartLine{{VariantID: "p1-v", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "LG9", res.LocationGroupID)
	assert.Equal(t, int64(1350), res.Subtotal)
	assert.True(t, res.AllAvailable)
}

// ============================================================================
// LocationService
// ============================================================================

func TestLocationService_Resolve(t *testing.T) {
	f := newFixture(t, CatalogConfig{})
	ctx := context.Background()

	g, err := f.locations.Resolve(ctx, "s1", "560001")
	require.NoError(t, err)
	assert.Equal(t, "LG1", g.ID)

	_, err = f.locations.Resolve(ctx, "s1", "999999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.locations.Resolve(ctx, "s1", "abc")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================================
// IndexService
// ============================================================================

func TestIndexService_ReindexAndSync(t *testing.T) {
	source := memory.New()
	index := memory.New()
	ctx := context.Background()
	require.NoError(t, source.Index(ctx, []domain.CatalogEntry{entry("p1", 1, 0), entry("p2", 2, 0), entry("p3", 3, 0)}))

	svc := NewIndexService(source, index, testLogger())
	svc.batch = 2

	n, err := svc.Reindex(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, total, err := index.Find(ctx, repository.FindParams{Predicate: query.And(), Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	require.NoError(t, source.Delete(ctx, "p2"))
	require.NoError(t, svc.SyncProduct(ctx, "p2"))

	renamed := entry("p1", 1, 0)
	renamed.Product.Name = "Renamed"
	require.NoError(t, source.Index(ctx, []domain.CatalogEntry{renamed}))
	require.NoError(t, svc.SyncProduct(ctx, "p1"))

	got, total, err := index.Find(ctx, repository.FindParams{Predicate: query.And(), Sort: domain.SortNameAsc, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Product p3", got[0].Product.Name)
	assert.Equal(t, "Renamed", got[1].Product.Name)
}
