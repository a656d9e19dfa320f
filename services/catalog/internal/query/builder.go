package query

import (
	"strings"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

// Plan is the two-phase evaluation plan of a FilterQuery.
type Plan struct {
	// Store is evaluated by the data store.
	Store Predicate
	// VariantMatch is the combined variant-level predicate, or nil when the
	// query has no variant filters. It selects the representative variant.
	VariantMatch Predicate
	// PostFetch is applied in memory after prices are resolved, or nil.
	PostFetch func(domain.ResolvedProduct) bool
	// RequiresFullScan means the page must be cut after PostFetch and the
	// sort, so the store cannot paginate.
	RequiresFullScan bool
	// Sort is the requested order. The store only ever applies StoreSort.
	Sort domain.SortBy
}

// StoreSort is the order the data store applies. Derived orders fall back to
// newest in the store and are re-sorted in memory.
func (p Plan) StoreSort() domain.SortBy {
	if p.Sort.IsDerived() {
		return domain.SortNewest
	}
	return p.Sort
}

// Build splits f into a store predicate and post-fetch filters. groupID is
// the resolved location group the price band is evaluated against; empty
// means no location context.
func Build(f domain.FilterQuery, groupID string) Plan {
	store := []Predicate{Eq(FieldStore, f.StoreID), NotArchived()}

	for _, eq := range []struct {
		field Field
		value *string
	}{
		{FieldCategory, f.CategoryID},
		{FieldSubCategory, f.SubCategoryID},
		{FieldBrand, f.BrandID},
	} {
		if eq.value != nil {
			store = append(store, Eq(eq.field, *eq.value))
		}
	}

	if q := strings.TrimSpace(f.Search); q != "" {
		store = append(store, Or(TextContains(TextName, q), TextContains(TextDescription, q)))
	}
	if f.HotDealsOnly {
		store = append(store, HotDeal())
	}

	variantMatch := VariantPredicate(f, groupID)
	if variantMatch != nil {
		store = append(store, HasVariant(variantMatch))
	}

	plan := Plan{
		Store:        And(store...),
		VariantMatch: variantMatch,
		Sort:         f.SortBy,
	}
	if plan.Sort == "" {
		plan.Sort = domain.SortNewest
	}

	plan.PostFetch = postFetch(f.RatingFloor, f.DiscountFloor)
	plan.RequiresFullScan = plan.PostFetch != nil || plan.Sort.IsDerived()
	return plan
}

// VariantPredicate combines the variant-level filters of f into one
// predicate, or returns nil when there are none.
func VariantPredicate(f domain.FilterQuery, groupID string) Predicate {
	var parts []Predicate
	if f.ColorID != nil {
		parts = append(parts, Eq(FieldColor, *f.ColorID))
	}
	if f.SizeID != nil {
		parts = append(parts, Eq(FieldSize, *f.SizeID))
	}
	if f.PriceBand != nil {
		parts = append(parts, PriceInBand(groupID, f.PriceBand.Min, f.PriceBand.Max))
	}
	if len(parts) == 0 {
		return nil
	}
	return And(parts...)
}

func postFetch(ratingFloor, discountFloor *float64) func(domain.ResolvedProduct) bool {
	if ratingFloor == nil && discountFloor == nil {
		return nil
	}
	minRating, minDiscount := floor(ratingFloor), floor(discountFloor)
	return func(rp domain.ResolvedProduct) bool {
		return rp.MeanRating >= minRating && float64(rp.DiscountPercent) >= minDiscount
	}
}

func floor(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
