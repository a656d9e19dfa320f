package domain

// Reasons a repriced cart line is unavailable.
const (
	UnavailableNotFound = "not_found"
	UnavailableArchived = "archived"
	UnavailableNoPrice  = "not_offered_in_location"
)

// CartLine is one line of a cart to be repriced.
type CartLine struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// RepricedLine is a cart line priced for the resolved location.
type RepricedLine struct {
	VariantID         string `json:"variant_id"`
	ProductID         string `json:"product_id,omitempty"`
	Name              string `json:"name,omitempty"`
	SKU               string `json:"sku,omitempty"`
	Quantity          int    `json:"quantity"`
	UnitPrice         int64  `json:"unit_price"`
	UnitMRP           int64  `json:"unit_mrp"`
	LineTotal         int64  `json:"line_total"`
	LineMRP           int64  `json:"line_mrp"`
	DiscountPercent   int    `json:"discount_percent"`
	Available         bool   `json:"available"`
	UnavailableReason string `json:"unavailable_reason,omitempty"`
}

// RepriceResult is a cart priced for a delivery pincode.
type RepriceResult struct {
	StoreID         string         `json:"store_id"`
	Pincode         string         `json:"pincode"`
	LocationGroupID string         `json:"location_group_id"`
	DeliveryDays    int            `json:"delivery_days"`
	CODAvailable    bool           `json:"cod_available"`
	Lines           []RepricedLine `json:"lines"`
	Subtotal        int64          `json:"subtotal"`
	MRPTotal        int64          `json:"mrp_total"`
	Savings         int64          `json:"savings"`
	AllAvailable    bool           `json:"all_available"`
}
