package domain

import (
	"time"
)

// Product is a catalog entry owned by a single store.
type Product struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	CategoryID    *string   `json:"category_id,omitempty"`
	SubCategoryID *string   `json:"sub_category_id,omitempty"`
	BrandID       *string   `json:"brand_id,omitempty"`
	IsArchived    bool      `json:"is_archived"`
	IsHotDeal     bool      `json:"is_hot_deal"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Variant is one purchasable size/color combination of a product.
type Variant struct {
	ID        string         `json:"id"`
	ProductID string         `json:"product_id"`
	SKU       string         `json:"sku"`
	ColorID   *string        `json:"color_id,omitempty"`
	SizeID    *string        `json:"size_id,omitempty"`
	Stock     int            `json:"stock"`
	IsActive  bool           `json:"is_active"`
	Prices    []VariantPrice `json:"prices,omitempty"`
	Images    []VariantImage `json:"images,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// VariantPrice is the price of a variant within one location group, in paise.
// A price of 0 means the variant is not offered in that group.
type VariantPrice struct {
	ID              string `json:"id"`
	VariantID       string `json:"variant_id"`
	LocationGroupID string `json:"location_group_id"`
	Price           int64  `json:"price"`
	MRP             int64  `json:"mrp"`
}

// VariantImage is an image attached to a variant.
type VariantImage struct {
	ID        string `json:"id"`
	VariantID string `json:"variant_id"`
	URL       string `json:"url"`
	SortOrder int    `json:"sort_order"`
}

// CatalogEntry is a product together with everything the query engine needs
// to evaluate and price it.
type CatalogEntry struct {
	Product  Product       `json:"product"`
	Variants []Variant     `json:"variants"`
	Ratings  ReviewSummary `json:"ratings"`
}

// FindVariant returns the variant with the given ID, or nil.
func (e *CatalogEntry) FindVariant(id string) *Variant {
	for i := range e.Variants {
		if e.Variants[i].ID == id {
			return &e.Variants[i]
		}
	}
	return nil
}
