package query

import (
	"fmt"
	"strings"
)

// Elasticsearch document field names. The index stores one document per
// product with variants and their prices as nested objects.
const (
	ESFieldID            = "id"
	ESFieldStore         = "store_id"
	ESFieldCategory      = "category_id"
	ESFieldSubCategory   = "sub_category_id"
	ESFieldBrand         = "brand_id"
	ESFieldName          = "name"
	ESFieldDescription   = "description"
	ESFieldArchived      = "is_archived"
	ESFieldHotDeal       = "is_hot_deal"
	ESPathVariants       = "variants"
	ESFieldVariantID     = "variants.id"
	ESFieldVariantActive = "variants.is_active"
	ESFieldColor         = "variants.color_id"
	ESFieldSize          = "variants.size_id"
	ESPathPrices         = "variants.prices"
	ESFieldPriceGroup    = "variants.prices.location_group_id"
	ESFieldPrice         = "variants.prices.price"
)

var esFields = map[Field]string{
	FieldStore:       ESFieldStore,
	FieldCategory:    ESFieldCategory,
	FieldSubCategory: ESFieldSubCategory,
	FieldBrand:       ESFieldBrand,
	FieldColor:       ESFieldColor,
	FieldSize:        ESFieldSize,
}

// Elastic compiles p into an Elasticsearch query DSL object. Text leaves are
// case-insensitive substring matches, so name and description must be mapped
// as wildcard fields.
func Elastic(p Predicate) (map[string]any, error) {
	return compileES(p, false)
}

func compileES(p Predicate, inVariant bool) (map[string]any, error) {
	switch n := p.(type) {
	case andNode:
		if len(n.children) == 0 {
			return map[string]any{"match_all": map[string]any{}}, nil
		}
		clauses, err := compileESAll(n.children, inVariant)
		if err != nil {
			return nil, err
		}
		return boolQuery("filter", clauses), nil
	case orNode:
		if len(n.children) == 0 {
			return map[string]any{"match_none": map[string]any{}}, nil
		}
		clauses, err := compileESAll(n.children, inVariant)
		if err != nil {
			return nil, err
		}
		q := boolQuery("should", clauses)
		q["bool"].(map[string]any)["minimum_should_match"] = 1
		return q, nil
	case eqNode:
		if n.field.VariantLevel() != inVariant {
			return nil, fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
		}
		return term(esFields[n.field], n.value), nil
	case notArchivedNode:
		return esProductOnly(n, inVariant, term(ESFieldArchived, false))
	case hotDealNode:
		return esProductOnly(n, inVariant, term(ESFieldHotDeal, true))
	case textNode:
		field := ESFieldName
		if n.field == TextDescription {
			field = ESFieldDescription
		}
		return esProductOnly(n, inVariant, map[string]any{
			"wildcard": map[string]any{
				field: map[string]any{"value": "*" + escapeWildcard(n.text) + "*", "case_insensitive": true},
			},
		})
	case productIDsNode:
		return esProductOnly(n, inVariant, map[string]any{
			"terms": map[string]any{ESFieldID: n.ids},
		})
	case hasVariantNode:
		if inVariant {
			return nil, fmt.Errorf("%w: nested %s", ErrMisplacedLeaf, n)
		}
		match, err := compileES(n.match, true)
		if err != nil {
			return nil, err
		}
		return nested(ESPathVariants, boolQuery("filter", []any{term(ESFieldVariantActive, true), match})), nil
	case variantIDsNode:
		if !inVariant {
			return nil, fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
		}
		return map[string]any{"terms": map[string]any{ESFieldVariantID: n.ids}}, nil
	case priceBandNode:
		if !inVariant {
			return nil, fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
		}
		bounds := map[string]any{"gt": 0}
		if n.min > 0 {
			bounds = map[string]any{"gte": n.min}
		}
		if n.max != nil {
			bounds["lte"] = *n.max
		}
		filters := []any{map[string]any{"range": map[string]any{ESFieldPrice: bounds}}}
		if n.group != "" {
			filters = append(filters, term(ESFieldPriceGroup, n.group))
		}
		return nested(ESPathPrices, boolQuery("filter", filters)), nil
	default:
		return nil, fmt.Errorf("query: unsupported predicate %T", p)
	}
}

func compileESAll(children []Predicate, inVariant bool) ([]any, error) {
	clauses := make([]any, 0, len(children))
	for _, c := range children {
		q, err := compileES(c, inVariant)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, q)
	}
	return clauses, nil
}

func esProductOnly(n Predicate, inVariant bool, q map[string]any) (map[string]any, error) {
	if inVariant {
		return nil, fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
	}
	return q, nil
}

func boolQuery(occur string, clauses []any) map[string]any {
	return map[string]any{"bool": map[string]any{occur: clauses}}
}

func term(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

func nested(path string, q map[string]any) map[string]any {
	return map[string]any{"nested": map[string]any{"path": path, "query": q}}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
