package query

import (
	"slices"
	"strings"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

// Match evaluates p against a catalog entry in memory, with the same
// semantics as the SQL and Elasticsearch compilations.
func Match(p Predicate, e *domain.CatalogEntry) bool {
	return eval(p, e, nil)
}

// MatchVariant evaluates a variant-level predicate against one variant of e.
// A nil predicate accepts every variant.
func MatchVariant(p Predicate, e *domain.CatalogEntry, v *domain.Variant) bool {
	if p == nil {
		return true
	}
	return eval(p, e, v)
}

// eval treats v == nil as product scope and v != nil as variant scope.
func eval(p Predicate, e *domain.CatalogEntry, v *domain.Variant) bool {
	switch n := p.(type) {
	case andNode:
		for _, c := range n.children {
			if !eval(c, e, v) {
				return false
			}
		}
		return true
	case orNode:
		for _, c := range n.children {
			if eval(c, e, v) {
				return true
			}
		}
		return false
	case eqNode:
		if v != nil {
			return equalPtr(variantField(v, n.field), n.value)
		}
		return equalPtr(productField(&e.Product, n.field), n.value)
	case notArchivedNode:
		return v == nil && !e.Product.IsArchived
	case hotDealNode:
		return v == nil && e.Product.IsHotDeal
	case textNode:
		if v != nil {
			return false
		}
		haystack := e.Product.Name
		if n.field == TextDescription {
			haystack = e.Product.Description
		}
		return strings.Contains(strings.ToLower(haystack), strings.ToLower(n.text))
	case productIDsNode:
		return v == nil && slices.Contains(n.ids, e.Product.ID)
	case hasVariantNode:
		if v != nil {
			return false
		}
		for i := range e.Variants {
			if e.Variants[i].IsActive && eval(n.match, e, &e.Variants[i]) {
				return true
			}
		}
		return false
	case variantIDsNode:
		return v != nil && slices.Contains(n.ids, v.ID)
	case priceBandNode:
		if v == nil {
			return false
		}
		band := domain.PriceBand{Min: n.min, Max: n.max}
		for _, row := range v.Prices {
			if row.Price <= 0 || (n.group != "" && row.LocationGroupID != n.group) {
				continue
			}
			if band.Contains(row.Price) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func productField(p *domain.Product, f Field) *string {
	switch f {
	case FieldStore:
		return &p.StoreID
	case FieldCategory:
		return p.CategoryID
	case FieldSubCategory:
		return p.SubCategoryID
	case FieldBrand:
		return p.BrandID
	default:
		return nil
	}
}

func variantField(v *domain.Variant, f Field) *string {
	switch f {
	case FieldColor:
		return v.ColorID
	case FieldSize:
		return v.SizeID
	default:
		return nil
	}
}

func equalPtr(got *string, want string) bool {
	return got != nil && *got == want
}
