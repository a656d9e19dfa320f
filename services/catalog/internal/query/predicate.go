// Package query models catalog filters as an immutable predicate tree and
// compiles it for each store backend.
//
// Trees are built with the constructors in this file and never mutated.
// Product-level leaves are evaluated against a product; variant-level leaves
// (color, size, variant IDs, price band) only make sense inside HasVariant,
// where they are evaluated against one variant at a time. Nesting all variant
// conditions under a single HasVariant is what makes "red AND size M AND
// under 500" mean one variant satisfying all three.
package query

import (
	"fmt"
	"slices"
	"strings"
)

// Field names a stored attribute that can be compared for equality.
type Field int

const (
	FieldStore Field = iota + 1
	FieldCategory
	FieldSubCategory
	FieldBrand
	FieldColor
	FieldSize
)

func (f Field) String() string {
	switch f {
	case FieldStore:
		return "store"
	case FieldCategory:
		return "category"
	case FieldSubCategory:
		return "sub_category"
	case FieldBrand:
		return "brand"
	case FieldColor:
		return "color"
	case FieldSize:
		return "size"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// VariantLevel reports whether the field belongs to a variant.
func (f Field) VariantLevel() bool {
	return f == FieldColor || f == FieldSize
}

// TextField names a free-text attribute of a product.
type TextField int

const (
	TextName TextField = iota + 1
	TextDescription
)

func (f TextField) String() string {
	if f == TextDescription {
		return "description"
	}
	return "name"
}

// Predicate is a node of a filter tree. The set of node types is closed.
type Predicate interface {
	fmt.Stringer
	predicate()
}

type (
	andNode struct{ children []Predicate }
	orNode  struct{ children []Predicate }

	eqNode struct {
		field Field
		value string
	}
	notArchivedNode struct{}
	hotDealNode     struct{}
	textNode        struct {
		field TextField
		text  string
	}
	productIDsNode struct{ ids []string }
	hasVariantNode struct{ match Predicate }

	variantIDsNode struct{ ids []string }
	priceBandNode  struct {
		group string
		min   int64
		max   *int64
	}
)

func (andNode) predicate()         {}
func (orNode) predicate()          {}
func (eqNode) predicate()          {}
func (notArchivedNode) predicate() {}
func (hotDealNode) predicate()     {}
func (textNode) predicate()        {}
func (productIDsNode) predicate()  {}
func (hasVariantNode) predicate()  {}
func (variantIDsNode) predicate()  {}
func (priceBandNode) predicate()   {}

// And matches when every child matches. And() matches everything. Nested
// Ands are flattened and nil children dropped.
func And(ps ...Predicate) Predicate {
	var children []Predicate
	for _, p := range ps {
		switch n := p.(type) {
		case nil:
		case andNode:
			children = append(children, n.children...)
		default:
			children = append(children, p)
		}
	}
	if len(children) == 1 {
		return children[0]
	}
	return andNode{children: children}
}

// Or matches when any child matches. Or() matches nothing.
func Or(ps ...Predicate) Predicate {
	var children []Predicate
	for _, p := range ps {
		switch n := p.(type) {
		case nil:
		case orNode:
			children = append(children, n.children...)
		default:
			children = append(children, p)
		}
	}
	if len(children) == 1 {
		return children[0]
	}
	return orNode{children: children}
}

// Eq compares a stored ID field for equality.
func Eq(field Field, value string) Predicate {
	return eqNode{field: field, value: value}
}

// NotArchived excludes archived products.
func NotArchived() Predicate { return notArchivedNode{} }

// HotDeal keeps products flagged as hot deals.
func HotDeal() Predicate { return hotDealNode{} }

// TextContains matches products whose field contains text, ignoring case.
func TextContains(field TextField, text string) Predicate {
	return textNode{field: field, text: text}
}

// ProductIDs matches products whose ID is in ids.
func ProductIDs(ids ...string) Predicate {
	return productIDsNode{ids: slices.Clone(ids)}
}

// HasVariant matches products with at least one active variant satisfying
// match. A nil match accepts any active variant.
func HasVariant(match Predicate) Predicate {
	if match == nil {
		match = And()
	}
	return hasVariantNode{match: match}
}

// VariantIDs matches variants whose ID is in ids.
func VariantIDs(ids ...string) Predicate {
	return variantIDsNode{ids: slices.Clone(ids)}
}

// PriceInBand matches variants with a positive price row within [min, max]
// for the given location group. With an empty group any positive row counts.
func PriceInBand(group string, min int64, max *int64) Predicate {
	n := priceBandNode{group: group, min: min}
	if max != nil {
		m := *max
		n.max = &m
	}
	return n
}

func (n andNode) String() string { return join("AND", n.children, "TRUE") }
func (n orNode) String() string  { return join("OR", n.children, "FALSE") }

func join(op string, children []Predicate, empty string) string {
	if len(children) == 0 {
		return empty
	}
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}

func (n eqNode) String() string        { return fmt.Sprintf("%s=%q", n.field, n.value) }
func (notArchivedNode) String() string { return "not_archived" }
func (hotDealNode) String() string     { return "hot_deal" }
func (n textNode) String() string      { return fmt.Sprintf("%s~%q", n.field, n.text) }
func (n productIDsNode) String() string {
	return fmt.Sprintf("product_id in %v", n.ids)
}
func (n hasVariantNode) String() string { return "variant(" + n.match.String() + ")" }
func (n variantIDsNode) String() string {
	return fmt.Sprintf("variant_id in %v", n.ids)
}

func (n priceBandNode) String() string {
	upper := "inf"
	if n.max != nil {
		upper = fmt.Sprint(*n.max)
	}
	group := n.group
	if group == "" {
		group = "*"
	}
	return fmt.Sprintf("price[%s] in [%d,%s]", group, n.min, upper)
}
