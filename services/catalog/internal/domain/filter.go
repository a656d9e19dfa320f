package domain

import (
	"strconv"
	"strings"
)

// SortBy names a listing order.
type SortBy string

// Sort options. Newest and NameAsc can be evaluated by the data store; the
// others order by derived values and force an in-memory pass.
const (
	SortNewest       SortBy = "newest"
	SortNameAsc      SortBy = "name_asc"
	SortPriceAsc     SortBy = "price_asc"
	SortPriceDesc    SortBy = "price_desc"
	SortDiscountDesc SortBy = "discount_desc"
	SortRatingDesc   SortBy = "rating_desc"
)

// ParseSortBy returns the sort option named by s, or SortNewest when s is
// empty or unknown.
func ParseSortBy(s string) SortBy {
	switch v := SortBy(strings.ToLower(strings.TrimSpace(s))); v {
	case SortNameAsc, SortPriceAsc, SortPriceDesc, SortDiscountDesc, SortRatingDesc:
		return v
	default:
		return SortNewest
	}
}

// IsDerived reports whether the order depends on resolved prices or ratings.
func (s SortBy) IsDerived() bool {
	switch s {
	case SortPriceAsc, SortPriceDesc, SortDiscountDesc, SortRatingDesc:
		return true
	default:
		return false
	}
}

// PriceBand is an inclusive price range in paise. A nil Max is unbounded.
type PriceBand struct {
	Min int64  `json:"min"`
	Max *int64 `json:"max,omitempty"`
}

// ParsePriceBand parses "min-max" or "min". Malformed input, negative
// bounds and inverted ranges yield nil.
func ParsePriceBand(s string) *PriceBand {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	minStr, maxStr, hasMax := strings.Cut(s, "-")
	minVal, err := strconv.ParseInt(strings.TrimSpace(minStr), 10, 64)
	if err != nil || minVal < 0 {
		return nil
	}
	band := &PriceBand{Min: minVal}
	if !hasMax || strings.TrimSpace(maxStr) == "" {
		return band
	}

	maxVal, err := strconv.ParseInt(strings.TrimSpace(maxStr), 10, 64)
	if err != nil || maxVal < minVal {
		return nil
	}
	band.Max = &maxVal
	return band
}

// Contains reports whether price lies within the band.
func (b PriceBand) Contains(price int64) bool {
	if price < b.Min {
		return false
	}
	return b.Max == nil || price <= *b.Max
}

// FilterQuery is a request-scoped listing query.
type FilterQuery struct {
	StoreID         string
	CategoryID      *string
	SubCategoryID   *string
	BrandID         *string
	ColorID         *string
	SizeID          *string
	PriceBand       *PriceBand
	RatingFloor     *float64
	DiscountFloor   *float64
	Pincode         string
	LocationGroupID string
	Search          string
	HotDealsOnly    bool
	SortBy          SortBy
	Page            int
	Limit           int
}

// HasVariantFilters reports whether any variant-level filter is set.
func (f FilterQuery) HasVariantFilters() bool {
	return f.ColorID != nil || f.SizeID != nil || f.PriceBand != nil
}
