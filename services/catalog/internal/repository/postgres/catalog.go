package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront-catalog/pkg/database"
	"github.com/utafrali/storefront-catalog/pkg/slug"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
)

// CatalogRepository implements repository.CatalogRepository using PostgreSQL.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

const productSelect = `
		SELECT p.id, p.store_id, p.name, p.slug, p.description, p.category_id, p.sub_category_id, p.brand_id,
		       p.is_archived, p.is_hot_deal, p.created_at, p.updated_at,
		       count(*) OVER() AS total_count
		FROM products p`

func orderBy(s domain.SortBy) string {
	if s == domain.SortNameAsc {
		return "ORDER BY p.name ASC, p.id ASC"
	}
	return "ORDER BY p.created_at DESC, p.id ASC"
}

// Find returns one window of matching products with their variants, prices,
// images and rating summaries.
func (r *CatalogRepository) Find(ctx context.Context, params repository.FindParams) ([]domain.CatalogEntry, int, error) {
	where, args, err := query.SQL(params.Predicate, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("compile predicate: %w", err)
	}

	stmt := fmt.Sprintf("%s\n\t\tWHERE %s\n\t\t%s\n\t\tLIMIT $%d OFFSET $%d",
		productSelect, where, orderBy(params.Sort), len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	ctx, finish := database.TraceQuery(ctx, "catalog.find", stmt)
	entries, total, err := r.findProducts(ctx, stmt, args)
	finish(err)
	if err != nil {
		return nil, 0, err
	}

	// Past the last page the window is empty and carries no total.
	if len(entries) == 0 && params.Offset > 0 {
		total, err = r.count(ctx, where, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}
	if len(entries) == 0 {
		return []domain.CatalogEntry{}, total, nil
	}

	if err := r.loadDetails(ctx, entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *CatalogRepository) findProducts(ctx context.Context, stmt string, args []any) ([]domain.CatalogEntry, int, error) {
	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	var (
		entries    []domain.CatalogEntry
		totalCount int
	)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.StoreID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.CategoryID,
			&p.SubCategoryID,
			&p.BrandID,
			&p.IsArchived,
			&p.IsHotDeal,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		if p.Slug == "" {
			p.Slug = slug.Generate(p.Name)
		}
		entries = append(entries, domain.CatalogEntry{Product: p, Variants: []domain.Variant{}})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return entries, totalCount, nil
}

func (r *CatalogRepository) count(ctx context.Context, where string, args []any) (int, error) {
	stmt := "SELECT count(*) FROM products p WHERE " + where

	ctx, finish := database.TraceQuery(ctx, "catalog.count", stmt)
	var n int
	err := r.pool.QueryRow(ctx, stmt, args...).Scan(&n)
	finish(err)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// loadDetails attaches variants, prices, images and ratings to entries with
// one query per table.
func (r *CatalogRepository) loadDetails(ctx context.Context, entries []domain.CatalogEntry) error {
	ids := make([]string, len(entries))
	byProduct := make(map[string]*domain.CatalogEntry, len(entries))
	for i := range entries {
		ids[i] = entries[i].Product.ID
		byProduct[ids[i]] = &entries[i]
	}

	variants, err := r.variants(ctx, ids)
	if err != nil {
		return err
	}
	prices, err := r.prices(ctx, ids)
	if err != nil {
		return err
	}
	images, err := r.images(ctx, ids)
	if err != nil {
		return err
	}
	ratings, err := r.ratings(ctx, ids)
	if err != nil {
		return err
	}

	for _, v := range variants {
		v.Prices = prices[v.ID]
		v.Images = images[v.ID]
		if e, ok := byProduct[v.ProductID]; ok {
			e.Variants = append(e.Variants, v)
		}
	}
	for id, rs := range ratings {
		if e, ok := byProduct[id]; ok {
			e.Ratings = domain.SummarizeRatings(rs)
		}
	}
	return nil
}

func (r *CatalogRepository) variants(ctx context.Context, productIDs []string) ([]domain.Variant, error) {
	stmt := `
		SELECT id, product_id, sku, color_id, size_id, stock, is_active, created_at
		FROM variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, created_at, id`

	rows, err := r.pool.Query(ctx, stmt, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.ColorID, &v.SizeID, &v.Stock, &v.IsActive, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}
	return variants, nil
}

// prices keeps stored order (created_at, id) per variant; the third price
// tier depends on it.
func (r *CatalogRepository) prices(ctx context.Context, productIDs []string) (map[string][]domain.VariantPrice, error) {
	stmt := `
		SELECT vp.id, vp.variant_id, vp.location_group_id, vp.price, vp.mrp
		FROM variant_prices vp
		JOIN variants v ON v.id = vp.variant_id
		WHERE v.product_id = ANY($1)
		ORDER BY vp.created_at, vp.id`

	rows, err := r.pool.Query(ctx, stmt, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load variant prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string][]domain.VariantPrice)
	for rows.Next() {
		var p domain.VariantPrice
		if err := rows.Scan(&p.ID, &p.VariantID, &p.LocationGroupID, &p.Price, &p.MRP); err != nil {
			return nil, fmt.Errorf("scan variant price row: %w", err)
		}
		prices[p.VariantID] = append(prices[p.VariantID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant price rows: %w", err)
	}
	return prices, nil
}

func (r *CatalogRepository) images(ctx context.Context, productIDs []string) (map[string][]domain.VariantImage, error) {
	stmt := `
		SELECT vi.id, vi.variant_id, vi.url, vi.sort_order
		FROM variant_images vi
		JOIN variants v ON v.id = vi.variant_id
		WHERE v.product_id = ANY($1)
		ORDER BY vi.sort_order, vi.id`

	rows, err := r.pool.Query(ctx, stmt, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load variant images: %w", err)
	}
	defer rows.Close()

	images := make(map[string][]domain.VariantImage)
	for rows.Next() {
		var img domain.VariantImage
		if err := rows.Scan(&img.ID, &img.VariantID, &img.URL, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("scan variant image row: %w", err)
		}
		images[img.VariantID] = append(images[img.VariantID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant image rows: %w", err)
	}
	return images, nil
}

func (r *CatalogRepository) ratings(ctx context.Context, productIDs []string) (map[string][]int, error) {
	stmt := `
		SELECT product_id, rating
		FROM product_reviews
		WHERE product_id = ANY($1)`

	rows, err := r.pool.Query(ctx, stmt, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()

	ratings := make(map[string][]int)
	for rows.Next() {
		var (
			productID string
			rating    int
		)
		if err := rows.Scan(&productID, &rating); err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		ratings[productID] = append(ratings[productID], rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating rows: %w", err)
	}
	return ratings, nil
}
