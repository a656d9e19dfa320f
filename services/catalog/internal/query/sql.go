package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMisplacedLeaf is returned when a variant-level leaf appears outside
// HasVariant or a product-level leaf inside it.
var ErrMisplacedLeaf = errors.New("query: leaf used at the wrong level")

// SQL compiles p into a WHERE fragment over products aliased p. Variants are
// reached through EXISTS sub-selects aliased v and prices through vp.
// Placeholders are numbered from argOffset+1, so the fragment can be
// appended to a statement that already has argOffset arguments.
func SQL(p Predicate, argOffset int) (string, []any, error) {
	c := &sqlCompiler{offset: argOffset}
	where, err := c.compile(p, false)
	if err != nil {
		return "", nil, err
	}
	return where, c.args, nil
}

type sqlCompiler struct {
	offset int
	args   []any
}

func (c *sqlCompiler) bind(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", c.offset+len(c.args))
}

var productColumns = map[Field]string{
	FieldStore:       "p.store_id",
	FieldCategory:    "p.category_id",
	FieldSubCategory: "p.sub_category_id",
	FieldBrand:       "p.brand_id",
}

var variantColumns = map[Field]string{
	FieldColor: "v.color_id",
	FieldSize:  "v.size_id",
}

func (c *sqlCompiler) compile(p Predicate, inVariant bool) (string, error) {
	switch n := p.(type) {
	case andNode:
		return c.compileAll(n.children, " AND ", "TRUE", inVariant)
	case orNode:
		return c.compileAll(n.children, " OR ", "FALSE", inVariant)
	case eqNode:
		columns := productColumns
		if inVariant {
			columns = variantColumns
		}
		col, ok := columns[n.field]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
		}
		return col + " = " + c.bind(n.value), nil
	case notArchivedNode:
		return c.productOnly(n, inVariant, "p.is_archived = FALSE")
	case hotDealNode:
		return c.productOnly(n, inVariant, "p.is_hot_deal = TRUE")
	case textNode:
		if inVariant {
			return "", fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
		}
		return fmt.Sprintf("p.%s ILIKE %s", n.field, c.bind("%"+escapeLike(n.text)+"%")), nil
	case productIDsNode:
		if inVariant {
			return "", fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
		}
		return "p.id = ANY(" + c.bind(n.ids) + ")", nil
	case hasVariantNode:
		if inVariant {
			return "", fmt.Errorf("%w: nested %s", ErrMisplacedLeaf, n)
		}
		match, err := c.compile(n.match, true)
		if err != nil {
			return "", err
		}
		return "EXISTS (SELECT 1 FROM variants v WHERE v.product_id = p.id AND v.is_active = TRUE AND " + match + ")", nil
	case variantIDsNode:
		if !inVariant {
			return "", fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
		}
		return "v.id = ANY(" + c.bind(n.ids) + ")", nil
	case priceBandNode:
		if !inVariant {
			return "", fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
		}
		conds := []string{"vp.variant_id = v.id", "vp.price > 0"}
		if n.group != "" {
			conds = append(conds, "vp.location_group_id = "+c.bind(n.group))
		}
		conds = append(conds, "vp.price >= "+c.bind(n.min))
		if n.max != nil {
			conds = append(conds, "vp.price <= "+c.bind(*n.max))
		}
		return "EXISTS (SELECT 1 FROM variant_prices vp WHERE " + strings.Join(conds, " AND ") + ")", nil
	default:
		return "", fmt.Errorf("query: unsupported predicate %T", p)
	}
}

func (c *sqlCompiler) productOnly(n Predicate, inVariant bool, clause string) (string, error) {
	if inVariant {
		return "", fmt.Errorf("%w: %s", ErrMisplacedLeaf, n)
	}
	return clause, nil
}

func (c *sqlCompiler) compileAll(children []Predicate, sep, empty string, inVariant bool) (string, error) {
	if len(children) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		s, err := c.compile(child, inVariant)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
