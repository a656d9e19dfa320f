// Package pricing selects the price a variant sells for in a location
// context and derives discount figures from it.
package pricing

import (
	"math"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

// Select returns the price of v for the resolved location group, falling back
// to the default group and then to the first positive price. Rows with a zero
// price are never selected. An empty groupID or defaultGroupID skips that tier.
func Select(v *domain.Variant, groupID, defaultGroupID string) domain.ResolvedPrice {
	if v == nil {
		return domain.ResolvedPrice{}
	}

	if groupID != "" {
		if row, ok := positiveIn(v.Prices, groupID); ok {
			return resolved(row, domain.TierResolvedGroup)
		}
	}
	if defaultGroupID != "" && defaultGroupID != groupID {
		if row, ok := positiveIn(v.Prices, defaultGroupID); ok {
			return resolved(row, domain.TierDefaultGroup)
		}
	}
	for _, row := range v.Prices {
		if row.Price > 0 {
			return resolved(row, domain.TierAnyGroup)
		}
	}
	return domain.ResolvedPrice{Tier: domain.TierUnavailable}
}

func positiveIn(rows []domain.VariantPrice, groupID string) (domain.VariantPrice, bool) {
	for _, row := range rows {
		if row.LocationGroupID == groupID && row.Price > 0 {
			return row, true
		}
	}
	return domain.VariantPrice{}, false
}

func resolved(row domain.VariantPrice, tier domain.PriceTier) domain.ResolvedPrice {
	mrp := row.MRP
	if mrp < row.Price {
		mrp = row.Price
	}
	return domain.ResolvedPrice{
		LocationGroupID: row.LocationGroupID,
		Price:           row.Price,
		MRP:             mrp,
		Tier:            tier,
	}
}

// DiscountPercent is round((mrp-price)/mrp*100), or 0 when mrp <= price.
func DiscountPercent(price, mrp int64) int {
	if mrp <= price || mrp <= 0 {
		return 0
	}
	return int(math.Round(float64(mrp-price) / float64(mrp) * 100))
}

// Representative picks the variant shown for a product in a listing: the
// first active variant accepted by match that has a price in this context,
// else the first accepted variant. A nil match accepts every active variant.
func Representative(variants []domain.Variant, match func(*domain.Variant) bool, groupID, defaultGroupID string) (*domain.Variant, domain.ResolvedPrice) {
	var fallback *domain.Variant
	for i := range variants {
		v := &variants[i]
		if !v.IsActive {
			continue
		}
		if match != nil && !match(v) {
			continue
		}
		if p := Select(v, groupID, defaultGroupID); p.Available() {
			return v, p
		}
		if fallback == nil {
			fallback = v
		}
	}
	if fallback == nil {
		return nil, domain.ResolvedPrice{}
	}
	return fallback, domain.ResolvedPrice{}
}

// Resolve builds the listing row for entry in a location context.
func Resolve(entry *domain.CatalogEntry, match func(*domain.Variant) bool, groupID, defaultGroupID string) domain.ResolvedProduct {
	v, price := Representative(entry.Variants, match, groupID, defaultGroupID)
	return domain.ResolvedProduct{
		Product:         entry.Product,
		Variant:         v,
		Price:           price,
		DiscountPercent: DiscountPercent(price.Price, price.MRP),
		AverageRating:   entry.Ratings.DisplayRating(),
		NumberOfRatings: entry.Ratings.NumberOfRatings,
		MeanRating:      entry.Ratings.AverageRating,
	}
}
