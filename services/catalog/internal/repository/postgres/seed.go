package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront-catalog/pkg/database"
	"github.com/utafrali/storefront-catalog/pkg/slug"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

// SeedWriter upserts location groups and catalog entries.
type SeedWriter struct {
	db database.TxStarter
}

// NewSeedWriter creates a SeedWriter over db.
func NewSeedWriter(db database.TxStarter) *SeedWriter {
	return &SeedWriter{db: db}
}

// Write upserts groups and entries in a single transaction. Rating summaries
// are not written; ratings come from product_reviews.
func (w *SeedWriter) Write(ctx context.Context, groups []domain.LocationGroup, entries []domain.CatalogEntry) (err error) {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, g := range groups {
		if err = writeGroup(ctx, tx, g); err != nil {
			return err
		}
	}
	for i := range entries {
		if err = writeEntry(ctx, tx, &entries[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func writeGroup(ctx context.Context, db database.DBTX, g domain.LocationGroup) error {
	_, err := db.Exec(ctx, `
		INSERT INTO location_groups (id, store_id, name, delivery_days, cod_available, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			delivery_days = EXCLUDED.delivery_days,
			cod_available = EXCLUDED.cod_available,
			is_default = EXCLUDED.is_default,
			updated_at = NOW()`,
		g.ID, g.StoreID, g.Name, g.DeliveryDays, g.CODAvailable, g.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("write location group %s: %w", g.ID, err)
	}

	for _, pin := range g.Pincodes {
		_, err := db.Exec(ctx, `
			INSERT INTO location_pincodes (id, location_group_id, store_id, pincode)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (store_id, pincode) DO UPDATE SET location_group_id = EXCLUDED.location_group_id`,
			uuid.New().String(), g.ID, g.StoreID, pin,
		)
		if err != nil {
			return fmt.Errorf("write pincode %s: %w", pin, err)
		}
	}
	return nil
}

func writeEntry(ctx context.Context, db database.DBTX, e *domain.CatalogEntry) error {
	p := e.Product
	if p.Slug == "" {
		p.Slug = slug.Generate(p.Name)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	_, err := db.Exec(ctx, `
		INSERT INTO products (id, store_id, name, slug, description, category_id, sub_category_id, brand_id,
		                      is_archived, is_hot_deal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			category_id = EXCLUDED.category_id,
			sub_category_id = EXCLUDED.sub_category_id,
			brand_id = EXCLUDED.brand_id,
			is_archived = EXCLUDED.is_archived,
			is_hot_deal = EXCLUDED.is_hot_deal,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.StoreID, p.Name, p.Slug, p.Description, p.CategoryID, p.SubCategoryID, p.BrandID,
		p.IsArchived, p.IsHotDeal, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("write product %s: %w", p.ID, err)
	}

	for _, v := range e.Variants {
		if err := writeVariant(ctx, db, p, v); err != nil {
			return err
		}
	}
	return nil
}

func writeVariant(ctx context.Context, db database.DBTX, p domain.Product, v domain.Variant) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = p.CreatedAt
	}
	_, err := db.Exec(ctx, `
		INSERT INTO variants (id, product_id, sku, color_id, size_id, stock, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			color_id = EXCLUDED.color_id,
			size_id = EXCLUDED.size_id,
			stock = EXCLUDED.stock,
			is_active = EXCLUDED.is_active`,
		v.ID, p.ID, v.SKU, v.ColorID, v.SizeID, v.Stock, v.IsActive, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write variant %s: %w", v.ID, err)
	}

	for _, pr := range v.Prices {
		_, err := db.Exec(ctx, `
			INSERT INTO variant_prices (id, variant_id, location_group_id, price, mrp)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (variant_id, location_group_id) DO UPDATE SET
				price = EXCLUDED.price,
				mrp = EXCLUDED.mrp`,
			idOrNew(pr.ID), v.ID, pr.LocationGroupID, pr.Price, pr.MRP,
		)
		if err != nil {
			return fmt.Errorf("write price of variant %s in %s: %w", v.ID, pr.LocationGroupID, err)
		}
	}

	for _, img := range v.Images {
		_, err := db.Exec(ctx, `
			INSERT INTO variant_images (id, variant_id, url, sort_order)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET url = EXCLUDED.url, sort_order = EXCLUDED.sort_order`,
			idOrNew(img.ID), v.ID, img.URL, img.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("write image of variant %s: %w", v.ID, err)
		}
	}
	return nil
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}
