package domain

// PriceTier records which fallback tier produced a resolved price.
type PriceTier int

const (
	// TierUnavailable means no positive price exists for the variant.
	TierUnavailable PriceTier = iota
	// TierResolvedGroup is the price of the resolved location group.
	TierResolvedGroup
	// TierDefaultGroup is the price of the store's default group.
	TierDefaultGroup
	// TierAnyGroup is the first positive price in stored order.
	TierAnyGroup
)

func (t PriceTier) String() string {
	switch t {
	case TierResolvedGroup:
		return "resolved_group"
	case TierDefaultGroup:
		return "default_group"
	case TierAnyGroup:
		return "any_group"
	default:
		return "unavailable"
	}
}

// MarshalText renders the tier by name in JSON output.
func (t PriceTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ResolvedPrice is the price and MRP chosen for a variant in a location
// context.
type ResolvedPrice struct {
	LocationGroupID string    `json:"location_group_id,omitempty"`
	Price           int64     `json:"price"`
	MRP             int64     `json:"mrp"`
	Tier            PriceTier `json:"tier"`
}

// Available reports whether the variant can be bought in this context.
func (p ResolvedPrice) Available() bool {
	return p.Price > 0
}

// ResolvedProduct is a listing row: a product, its representative variant
// and the derived values shown with it.
type ResolvedProduct struct {
	Product         Product       `json:"product"`
	Variant         *Variant      `json:"variant,omitempty"`
	Price           ResolvedPrice `json:"price"`
	DiscountPercent int           `json:"discount_percent"`
	AverageRating   float64       `json:"average_rating"`
	NumberOfRatings int           `json:"number_of_ratings"`

	// MeanRating is the unrounded average; floors and sorts compare on it.
	MeanRating float64 `json:"-"`
}
