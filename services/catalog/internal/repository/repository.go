package repository

import (
	"context"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
)

// FindParams selects one window of catalog entries.
type FindParams struct {
	Predicate query.Predicate
	// Sort must be SortNewest or SortNameAsc. Ties are broken by product ID.
	Sort   domain.SortBy
	Offset int
	Limit  int
}

// CatalogRepository is a data store able to evaluate predicate trees.
type CatalogRepository interface {
	// Find returns the entries matching params.Predicate in params.Sort order,
	// windowed by Offset and Limit, together with the total number of matches.
	// Entries carry all variants of the product, not just matching ones.
	Find(ctx context.Context, params FindParams) ([]domain.CatalogEntry, int, error)
}

// CatalogIndex is a secondary copy of the catalog kept in sync from the
// primary store.
type CatalogIndex interface {
	Index(ctx context.Context, entries []domain.CatalogEntry) error
	Delete(ctx context.Context, productID string) error
}

// LocationRepository stores location groups and their pincodes.
type LocationRepository interface {
	location.Lookup
}
